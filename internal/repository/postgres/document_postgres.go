package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"briefcase/internal/model"
	"briefcase/internal/repository"
)

const documentColumns = `id, filename, storage_path, mime_type, size, sender_id, recipient_id,
		encryption_iv, encryption_auth_tag, view_count, view_limit, expires_at, created_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// IsNoRowsError reports whether err represents a missing row.
func IsNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func scanDocument(s interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	if err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.StoragePath,
		&d.MimeType,
		&d.Size,
		&d.SenderID,
		&d.RecipientID,
		&d.EncryptionIV,
		&d.EncryptionAuthTag,
		&d.ViewCount,
		&d.ViewLimit,
		&d.ExpiresAt,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, filename, storage_path, mime_type, size, sender_id, recipient_id,
			encryption_iv, encryption_auth_tag, view_count, view_limit, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Filename,
		doc.StoragePath,
		doc.MimeType,
		doc.Size,
		doc.SenderID,
		doc.RecipientID,
		doc.EncryptionIV,
		doc.EncryptionAuthTag,
		doc.ViewCount,
		doc.ViewLimit,
		doc.ExpiresAt,
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindBySender returns documents sent by the given user, newest first.
func (r *DocumentPostgres) FindBySender(ctx context.Context, senderID string) ([]model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE sender_id = $1 ORDER BY created_at DESC, id DESC`
	return r.queryDocuments(ctx, q, senderID)
}

// FindByRecipient returns documents received by the given user, newest first.
func (r *DocumentPostgres) FindByRecipient(ctx context.Context, recipientID string) ([]model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE recipient_id = $1 ORDER BY created_at DESC, id DESC`
	return r.queryDocuments(ctx, q, recipientID)
}

// FindExpiredBefore returns documents whose expiry has passed at the cutoff.
func (r *DocumentPostgres) FindExpiredBefore(ctx context.Context, cutoff time.Time) ([]model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE expires_at IS NOT NULL AND expires_at <= $1`
	return r.queryDocuments(ctx, q, cutoff)
}

func (r *DocumentPostgres) queryDocuments(ctx context.Context, q string, args ...any) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// IncrementViewCount bumps view_count in a single UPDATE and returns the new
// value, so the caller's destruction decision always sees the authoritative
// post-increment count even under concurrent downloads.
func (r *DocumentPostgres) IncrementViewCount(ctx context.Context, id string) (int, error) {
	const q = `UPDATE documents SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`
	var count int
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a document by ID. It does not return an error if the row
// does not exist; destruction must be idempotent under concurrent attempts.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}
