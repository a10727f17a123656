// Package sqlstore implements the persistence ports over database/sql with sqlx.
//
// Two drivers are supported: modernc.org/sqlite, a pure Go SQLite that needs
// no CGO and is the default, and github.com/lib/pq for Postgres. Queries are
// written once with ? placeholders and rebound per driver. The schema is
// managed by goose migrations embedded per dialect under migrations/.
//
// Tables:
//
//   - user_integrations: one credential per (user, provider)
//   - workflows, user_workflows: the workflow catalogue and activations
//   - workflow_execution_logs: run outcome rows
//   - scheduled_tasks, task_results: scheduler state and history
//
// Timestamps are stored as fixed-width UTC text so they order correctly on
// both dialects. Credential expiries are kept exactly as written.
package sqlstore
