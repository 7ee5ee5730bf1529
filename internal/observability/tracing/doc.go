// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created around gateway invocations and render job dispatch so
// that provider fallback chains and poll loops can be inspected end to end.
// Exporter wiring is left to the deployment (the default no-op tracer is
// used when no SDK is installed).
package tracing
