// Package trace records what the compiler is doing while it does it.
//
// Tracing is off by default. The CLI enables it with:
//
//	cc16 build --trace=- --trace-level=pass main.hir
//
// Events are begin/end pairs of spans plus instant points. Every event has a
// Scope (driver, unit, pass, func) and the configured Level decides which
// scopes are kept:
//
//   - off    nothing
//   - error  nothing during a normal run; the ring buffer is dumped on failure
//   - phase  driver and unit spans
//   - pass   optimizer rounds and backend phases as well
//   - debug  per-function events
//
// Tracers travel through context.Context (WithTracer / FromContext) so the
// pure compiler packages never import a global.
package trace
