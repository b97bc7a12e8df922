package repository

import (
	"context"
	"time"

	"briefcase/internal/model"
)

// DocumentRepository defines data access for document metadata using SQL
// queries only. No business logic here — strictly persistence operations.
// Access policy and destruction decisions belong to the service layer.
type DocumentRepository interface {
	// Create inserts a new document record.
	// The caller provides required fields (e.g., ID, CreatedAt) according to
	// the database schema defaults. Returns the stored document (may include
	// values set by the DB).
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindBySender returns documents sent by the given user, newest first.
	FindBySender(ctx context.Context, senderID string) ([]model.Document, error)

	// FindByRecipient returns documents received by the given user, newest first.
	FindByRecipient(ctx context.Context, recipientID string) ([]model.Document, error)

	// FindExpiredBefore returns documents whose expiry timestamp is at or
	// before the cutoff. Documents with no expiry are never returned.
	FindExpiredBefore(ctx context.Context, cutoff time.Time) ([]model.Document, error)

	// IncrementViewCount atomically increments view_count by one and returns
	// the post-increment value. The increment happens in a single statement at
	// the storage layer so concurrent calls never lose an update, and the
	// returned count is the authoritative value for destruction decisions.
	IncrementViewCount(ctx context.Context, id string) (int, error)

	// Delete removes a document by ID. It returns nil if the row was deleted
	// or did not exist, so concurrent destruction attempts are idempotent.
	Delete(ctx context.Context, id string) error
}
