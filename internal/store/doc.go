// Package store is the transactional document store every lodging component
// reads and writes through.
//
// Documents are JSON bodies keyed by (property, collection, id). All work
// happens inside Store.RunTx: reads, writes and audit entries either commit
// together or not at all. Writes inside a transaction are visible to later
// reads of the same transaction.
//
// Error contract:
//   - ErrNotFound: the document does not exist
//   - ErrConflict: a concurrent writer got there first; retry the whole operation
//   - ErrIntegrity: an audit entry could not be appended; nothing was committed
package store
