// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - CredentialsStore: Per-user provider integrations
//   - WorkflowStore: Workflow catalogue and activations
//   - ExecutionLogStore: Run outcome rows
//   - SchedulerStore: Scheduler state for crash recovery
//   - TokenProvider: Valid access tokens, refreshed on demand
//   - SourceAdapter / CalendarAdapter: Provider API access
//   - Locker: Per-credential mutual exclusion
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - JobQueue: On-demand runs. Without it runs execute inline.
//   - Metrics: Counters. Without it NopMetrics is used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
