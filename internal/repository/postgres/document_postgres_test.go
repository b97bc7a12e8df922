package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"briefcase/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var documentCols = []string{
	"id", "filename", "storage_path", "mime_type", "size", "sender_id", "recipient_id",
	"encryption_iv", "encryption_auth_tag", "view_count", "view_limit", "expires_at", "created_at",
}

func documentRow(doc *model.Document) *sqlmock.Rows {
	return sqlmock.NewRows(documentCols).AddRow(
		doc.ID, doc.Filename, doc.StoragePath, doc.MimeType, doc.Size,
		doc.SenderID, doc.RecipientID, doc.EncryptionIV, doc.EncryptionAuthTag,
		doc.ViewCount, doc.ViewLimit, doc.ExpiresAt, doc.CreatedAt,
	)
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	limit := 3
	doc := &model.Document{
		ID:                "test-uuid",
		Filename:          "report.pdf",
		StoragePath:       "documents/1700000000000-aa.pdf.encrypted",
		MimeType:          "application/pdf",
		Size:              123,
		SenderID:          "sender-uuid",
		RecipientID:       "recipient-uuid",
		EncryptionIV:      "00112233445566778899aabbccddeeff",
		EncryptionAuthTag: "ffeeddccbbaa99887766554433221100",
		ViewLimit:         &limit,
		CreatedAt:         now,
	}

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(doc.ID, doc.Filename, doc.StoragePath, doc.MimeType, doc.Size,
			doc.SenderID, doc.RecipientID, doc.EncryptionIV, doc.EncryptionAuthTag,
			doc.ViewCount, doc.ViewLimit, doc.ExpiresAt, doc.CreatedAt).
		WillReturnRows(documentRow(doc))

	result, err := repo.Create(ctx, doc)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, doc.ID, result.ID)
	assert.Equal(t, &limit, result.ViewLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		doc := &model.Document{ID: "test-id", Filename: "file.txt", CreatedAt: time.Now()}
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(documentRow(doc))

		got, err := repo.FindByID(ctx, "test-id")

		assert.NoError(t, err)
		assert.NotNil(t, got)
		assert.Equal(t, "test-id", got.ID)
		assert.Nil(t, got.ViewLimit)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.FindByID(ctx, "missing")

		assert.Error(t, err)
		assert.True(t, IsNoRowsError(err))
		assert.Nil(t, got)
	})
}

func TestDocumentPostgres_FindBySenderAndRecipient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	doc := &model.Document{ID: "d1", SenderID: "alice", RecipientID: "bob", CreatedAt: time.Now()}

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE sender_id = ?").
		WithArgs("alice").
		WillReturnRows(documentRow(doc))

	sent, err := repo.FindBySender(ctx, "alice")
	assert.NoError(t, err)
	assert.Len(t, sent, 1)
	assert.Equal(t, "d1", sent[0].ID)

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE recipient_id = ?").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(documentCols))

	received, err := repo.FindByRecipient(ctx, "bob")
	assert.NoError(t, err)
	assert.Empty(t, received)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindExpiredBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	cutoff := time.Now().UTC()
	past := cutoff.Add(-time.Hour)
	doc := &model.Document{ID: "expired-doc", ExpiresAt: &past, CreatedAt: cutoff.Add(-2 * time.Hour)}

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE expires_at IS NOT NULL AND expires_at <= ?").
		WithArgs(cutoff).
		WillReturnRows(documentRow(doc))

	items, err := repo.FindExpiredBefore(ctx, cutoff)

	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "expired-doc", items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_IncrementViewCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("returns post-increment count", func(t *testing.T) {
		mock.ExpectQuery("UPDATE documents SET view_count = view_count \\+ 1").
			WithArgs("doc-id").
			WillReturnRows(sqlmock.NewRows([]string{"view_count"}).AddRow(2))

		count, err := repo.IncrementViewCount(ctx, "doc-id")

		assert.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectQuery("UPDATE documents SET view_count = view_count \\+ 1").
			WithArgs("gone").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.IncrementViewCount(ctx, "gone")

		assert.True(t, IsNoRowsError(err))
	})
}

func TestDocumentPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("existing row", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE id = ?").
			WithArgs("doc-id").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(ctx, "doc-id"))
	})

	t.Run("missing row is not an error", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE id = ?").
			WithArgs("already-gone").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.Delete(ctx, "already-gone"))
	})
}
