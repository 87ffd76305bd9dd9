// Package stay implements the stay lifecycle: booking, pre-checkin,
// check-in, check-out and its undo, cancellation and archiving.
//
// Transitions that touch more than the stay run as one store transaction
// together with their cabin and housekeeping effects, and queue any
// automated guest message inside that same transaction:
//
//	CheckOut:      stay finished, pending daily tasks cancelled,
//	               cabin → cleaning, one turnover task created,
//	               checkout_thanks + nps_survey queued
//	UndoCheckOut:  open turnovers cancelled (not deleted),
//	               stay active, cabin → occupied
//
// Events are published only after the transaction commits.
package stay
