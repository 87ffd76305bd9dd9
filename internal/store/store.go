package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/stayflow-core/internal/audit"
)

// Store runs units of work against one property partition.
type Store interface {
	// RunTx calls fn inside a transaction scoped to propertyID. The
	// transaction commits when fn returns nil and rolls back otherwise.
	RunTx(ctx context.Context, propertyID string, fn func(tx Tx) error) error
}

// Tx is the view a unit of work has of the store.
type Tx interface {
	// PropertyID is the partition the transaction is scoped to.
	PropertyID() string

	// Now is the transaction timestamp. Every marker written in one
	// transaction carries the same instant.
	Now() time.Time

	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)

	// Create fails with ErrConflict when id already exists.
	Create(ctx context.Context, collection, id string, v any) error
	// Update fails with ErrNotFound when id is absent and with ErrConflict
	// when the document changed since this transaction read it.
	Update(ctx context.Context, collection, id string, v any) error
	// Set writes v whether or not the document exists.
	Set(ctx context.Context, collection, id string, v any) error
	Delete(ctx context.Context, collection, id string) error

	// Audit stages an entry appended just before commit. PropertyID,
	// CreatedAt and (when empty) Actor and Source are filled in by the store.
	Audit(entry audit.AuditLog)
}

// Document is a stored JSON body with its optimistic-lock version.
type Document struct {
	ID      string
	Version int64
	Data    json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decoding document %s: %w", d.ID, err)
	}
	return nil
}

// Get loads and decodes one document.
func Get[T any](ctx context.Context, tx Tx, collection, id string) (*T, error) {
	doc, err := tx.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	var v T
	if err := doc.Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Query loads and decodes every document matching filters, in insertion order.
func Query[T any](ctx context.Context, tx Tx, collection string, filters ...Filter) ([]T, error) {
	docs, err := tx.Query(ctx, collection, filters...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
