// Package housekeeping runs the cleaning task workflow.
//
// A task moves pending → in_progress → waiting_conference, then either to
// completed on approval or back to in_progress for rework. Approving the
// last open turnover of a cabin frees the cabin in the same transaction.
//
// Tasks created by a check-out, and the cancellations an undone check-out
// needs, go through the tx-scoped helpers in staged.go so they commit with
// the stay change that caused them.
package housekeeping
