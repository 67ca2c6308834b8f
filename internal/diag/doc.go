// Package diag defines the diagnostic model shared by the compiler phases.
//
// Producers (the IR generator, the optimizer, the backend and the driver)
// never format or print anything themselves. They report coded findings
// through a Reporter; the driver collects them in a Bag and hands the bag to
// internal/diagfmt for rendering.
//
// # Codes
//
// Every Code belongs to a numeric range that identifies the phase:
//
//   - 4000–4999 generator errors (GEN)
//   - 5000–5999 backend errors (BCK)
//   - 6000–6999 optimizer warnings (OPT)
//   - 7000–7999 driver, IO and configuration errors (DRV)
//
// Code.ID returns the stable textual form used in golden files, e.g. GEN4001.
//
// # Reporters
//
// BagReporter stores into a Bag, DedupReporter drops repeated findings
// (the optimizer re-runs its passes and would otherwise warn once per round),
// and ReportBuilder accumulates notes before emitting exactly once.
package diag
