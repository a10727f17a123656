// Package connectors holds the provider adapters the sync engine talks to.
// rest is the shared retrying JSON client; notion reads and updates the
// source database; google/calendar creates events. Adapters are built per
// credential through the builders in core/ports/driven.
package connectors
