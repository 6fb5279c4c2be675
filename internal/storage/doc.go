// Package storage keeps the broadcast audit trail: one entry per trigger
// (connect, refresh, file change, schedule) with its delivery outcome.
//
// Snapshots themselves are never stored; they are rebuilt on every trigger.
package storage
