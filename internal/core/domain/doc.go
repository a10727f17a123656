// Package domain holds the flowsync entities shared by every layer:
//
//   - Credential: a user's tokens for one provider
//   - SourceRecord: a pending row read from the Notion database
//   - EventRequest: the calendar event built from a record
//   - RunResult: what one workflow run did
//   - ExecutionLog: a persisted step outcome
//
// It imports only the standard library. Everything else depends on domain,
// never the reverse.
package domain
