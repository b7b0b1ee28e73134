/*
Package ports defines the driven ports (interfaces) for the carepath engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends, graph sources and submission endpoints.

# Key Interfaces

  - Storage: flat key/value persistence with expiry (flow state).
  - TokenStore: single-use expiring tokens (one-time login links).
  - DistributedLocker: distributed locking for concurrent access to one subscription's flow.
  - Submitter: the form-submission hooks.
  - GraphLoader: where the wizard graph comes from.
*/
package ports
