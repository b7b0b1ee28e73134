/*
Package observability turns engine and gateway events into prometheus metrics and structured logs.

Metrics are registered on a caller-provided prometheus.Registerer; Hooks returns the
domain.LifecycleHooks to pass to the engine and CRMAttempt the callback for the CRM gateway.
*/
package observability
