// Package lodging holds the shared vocabulary of the stay orchestration core:
// stays, guests, cabins and housekeeping tasks, their status enums and the
// transition tables that govern them.
//
// Status changes go through the Transition methods on each status type.
// Nothing else in the repository assigns a status directly, so every rule
// about which moves are legal lives in this package.
//
// Subpackages:
//   - stay: booking, check-in, check-out and its undo, cancellation, archive
//   - housekeeping: task creation, assignment, start, finish and conference
//   - internal/cabin: cabin occupancy, written only by the two above
package lodging
