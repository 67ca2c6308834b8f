package driver

import (
	"cc16/internal/project"
	"cc16/internal/version"
)

// unitKey is H(tree || settings || compiler build): a cached unit is
// reused only when all three match.
func unitKey(tree []byte, cfg *project.Config) project.Digest {
	return project.Combine(
		project.HashBytes(tree),
		cfg.Fingerprint(),
		project.HashBytes([]byte(version.CacheKey())),
	)
}
