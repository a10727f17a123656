// Package services implements the driving port interfaces.
// Services contain the workflow engine: sync tasks, the task registry,
// the runner and the scheduler. They orchestrate calls to driven ports
// (adapters) and never talk to a provider or database directly.
package services
