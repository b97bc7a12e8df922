package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"briefcase/internal/crypto"
	"briefcase/internal/model"
	repoMocks "briefcase/internal/repository/mocks"
	"briefcase/internal/storage"
	storeMocks "briefcase/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockLifecycle is an in-package stand-in for DocumentService; the generated
// mocks package imports service and cannot be used from these tests.
type mockLifecycle struct {
	mock.Mock
}

func (m *mockLifecycle) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if doc, ok := args.Get(0).(*model.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLifecycle) Get(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if doc, ok := args.Get(0).(*model.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLifecycle) ListSent(ctx context.Context, userID string) ([]model.Document, error) {
	args := m.Called(ctx, userID)
	if docs, ok := args.Get(0).([]model.Document); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLifecycle) ListReceived(ctx context.Context, userID string) ([]model.Document, error) {
	args := m.Called(ctx, userID)
	if docs, ok := args.Get(0).([]model.Document); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLifecycle) EvaluateAccess(doc *model.Document, userID string) AccessDecision {
	args := m.Called(doc, userID)
	return args.Get(0).(AccessDecision)
}

func (m *mockLifecycle) RecordView(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockLifecycle) ApplyDestructionPolicy(ctx context.Context, doc *model.Document, viewCount int) (bool, error) {
	args := m.Called(ctx, doc, viewCount)
	return args.Bool(0), args.Error(1)
}

func (m *mockLifecycle) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *mockLifecycle) SweepExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newTestEngine(t *testing.T) *crypto.Engine {
	t.Helper()
	engine, err := crypto.NewEngine("exchange-test-secret")
	require.NoError(t, err)
	return engine
}

func validUpload() UploadInput {
	return UploadInput{
		Filename:    "report.pdf",
		MimeType:    "application/pdf",
		SenderID:    "alice",
		RecipientID: "bob",
	}
}

func TestExchangeService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path stores ciphertext and creates metadata", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(mockLifecycle)
		mUsers := new(repoMocks.MockUserRepository)
		svc := NewExchangeService(newTestEngine(t), mStore, mDocs, mUsers)

		plaintext := []byte("quarterly numbers")

		mUsers.On("FindByID", ctx, "bob").Return(&model.User{ID: "bob"}, nil)

		var storedKey string
		var storedBody []byte
		mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "documents/") && strings.HasSuffix(key, ".pdf.encrypted")
		}), mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.ContentType == "application/octet-stream" && opt.Size > 0
		})).Run(func(args mock.Arguments) {
			storedKey = args.String(1)
			body, err := io.ReadAll(args.Get(2).(io.Reader))
			require.NoError(t, err)
			storedBody = body
		}).Return(storage.ObjectInfo{}, nil)

		mDocs.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
			return doc.Filename == "report.pdf" &&
				doc.SenderID == "alice" &&
				doc.RecipientID == "bob" &&
				doc.Size == int64(len(plaintext)) &&
				doc.EncryptionIV != "" &&
				doc.EncryptionAuthTag != ""
		})).Return(&model.Document{ID: "doc-1"}, nil)

		doc, err := svc.Upload(ctx, bytes.NewReader(plaintext), validUpload())

		require.NoError(t, err)
		assert.Equal(t, "doc-1", doc.ID)
		assert.NotEqual(t, plaintext, storedBody, "blob must not contain plaintext")
		assert.NotContains(t, storedKey, "report", "stored name must not leak the original filename")
		mStore.AssertExpectations(t)
		mDocs.AssertExpectations(t)
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name    string
			reader  io.Reader
			mutate  func(in *UploadInput)
			wantErr error
		}{
			{
				name:    "nil reader",
				reader:  nil,
				wantErr: ErrReaderNil,
			},
			{
				name:    "missing recipient",
				reader:  strings.NewReader("x"),
				mutate:  func(in *UploadInput) { in.RecipientID = "" },
				wantErr: ErrRecipientRequired,
			},
			{
				name:    "self send",
				reader:  strings.NewReader("x"),
				mutate:  func(in *UploadInput) { in.RecipientID = "alice" },
				wantErr: ErrSelfSend,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := NewExchangeService(newTestEngine(t), nil, nil, nil)

				in := validUpload()
				if tt.mutate != nil {
					tt.mutate(&in)
				}

				_, err := svc.Upload(ctx, tt.reader, in)

				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	})

	t.Run("unknown recipient", func(t *testing.T) {
		mUsers := new(repoMocks.MockUserRepository)
		svc := NewExchangeService(newTestEngine(t), nil, nil, mUsers)

		mUsers.On("FindByID", ctx, "bob").Return(nil, sql.ErrNoRows)

		_, err := svc.Upload(ctx, strings.NewReader("x"), validUpload())

		assert.ErrorIs(t, err, ErrRecipientNotFound)
	})

	t.Run("storage failure aborts before metadata", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(mockLifecycle)
		mUsers := new(repoMocks.MockUserRepository)
		svc := NewExchangeService(newTestEngine(t), mStore, mDocs, mUsers)

		mUsers.On("FindByID", ctx, "bob").Return(&model.User{ID: "bob"}, nil)
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, errors.New("minio down"))

		_, err := svc.Upload(ctx, strings.NewReader("x"), validUpload())

		assert.ErrorContains(t, err, "upload to storage")
		mDocs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("metadata failure rolls back the blob", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(mockLifecycle)
		mUsers := new(repoMocks.MockUserRepository)
		svc := NewExchangeService(newTestEngine(t), mStore, mDocs, mUsers)

		mUsers.On("FindByID", ctx, "bob").Return(&model.User{ID: "bob"}, nil)

		var storedKey string
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { storedKey = args.String(1) }).
			Return(storage.ObjectInfo{}, nil)
		mDocs.On("Create", ctx, mock.Anything).Return(nil, errors.New("insert failed"))
		mStore.On("Delete", ctx, mock.MatchedBy(func(key string) bool { return key == storedKey })).
			Return(nil)

		_, err := svc.Upload(ctx, strings.NewReader("x"), validUpload())

		assert.ErrorContains(t, err, "db save failed")
		mStore.AssertCalled(t, "Delete", ctx, mock.Anything)
	})
}

func TestExchangeService_Download(t *testing.T) {
	ctx := context.Background()
	plaintext := []byte("the payload")

	// Encrypt once with a real engine so Download exercises real decryption.
	engine := newTestEngine(t)
	enc, err := engine.Encrypt(plaintext)
	require.NoError(t, err)

	doc := &model.Document{
		ID:                "doc-1",
		Filename:          "report.pdf",
		StoragePath:       "documents/blob.pdf.encrypted",
		MimeType:          "application/pdf",
		SenderID:          "alice",
		RecipientID:       "bob",
		EncryptionIV:      enc.IV,
		EncryptionAuthTag: enc.AuthTag,
	}

	blobGet := func(mStore *storeMocks.MockStorage) {
		mStore.On("Get", ctx, doc.StoragePath).
			Return(io.NopCloser(bytes.NewReader(enc.Ciphertext)), storage.ObjectInfo{}, nil)
	}

	t.Run("recipient view decrypts, accounts and destroys at the limit", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(mockLifecycle)
		svc := NewExchangeService(engine, mStore, mDocs, nil)

		mDocs.On("Get", ctx, "doc-1").Return(doc, nil)
		mDocs.On("EvaluateAccess", doc, "bob").Return(AccessDecision{Allowed: true})
		blobGet(mStore)
		mDocs.On("RecordView", ctx, "doc-1").Return(1, nil)
		mDocs.On("ApplyDestructionPolicy", ctx, doc, 1).Return(true, nil)

		res, err := svc.Download(ctx, "doc-1", "bob")

		require.NoError(t, err)
		assert.Equal(t, plaintext, res.Content)
		assert.Equal(t, "report.pdf", res.Filename)
		assert.Equal(t, "application/pdf", res.MimeType)
		assert.True(t, res.Destroyed)
		mDocs.AssertExpectations(t)
	})

	t.Run("sender view does not touch the view budget", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(mockLifecycle)
		svc := NewExchangeService(engine, mStore, mDocs, nil)

		mDocs.On("Get", ctx, "doc-1").Return(doc, nil)
		mDocs.On("EvaluateAccess", doc, "alice").Return(AccessDecision{Allowed: true})
		blobGet(mStore)

		res, err := svc.Download(ctx, "doc-1", "alice")

		require.NoError(t, err)
		assert.Equal(t, plaintext, res.Content)
		assert.False(t, res.Destroyed)
		mDocs.AssertNotCalled(t, "RecordView", mock.Anything, mock.Anything)
		mDocs.AssertNotCalled(t, "ApplyDestructionPolicy", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("access denial surfaces the policy reason", func(t *testing.T) {
		mDocs := new(mockLifecycle)
		svc := NewExchangeService(engine, nil, mDocs, nil)

		mDocs.On("Get", ctx, "doc-1").Return(doc, nil)
		mDocs.On("EvaluateAccess", doc, "mallory").
			Return(AccessDecision{Reason: ReasonNotParticipant})

		_, err := svc.Download(ctx, "doc-1", "mallory")

		var denied *AccessDeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, ReasonNotParticipant, denied.Reason)
	})

	t.Run("missing document", func(t *testing.T) {
		mDocs := new(mockLifecycle)
		svc := NewExchangeService(engine, nil, mDocs, nil)

		mDocs.On("Get", ctx, "missing").Return(nil, ErrNotFound)

		_, err := svc.Download(ctx, "missing", "bob")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("tampered blob fails closed", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(mockLifecycle)
		svc := NewExchangeService(engine, mStore, mDocs, nil)

		tampered := append([]byte(nil), enc.Ciphertext...)
		tampered[0] ^= 0x01

		mDocs.On("Get", ctx, "doc-1").Return(doc, nil)
		mDocs.On("EvaluateAccess", doc, "bob").Return(AccessDecision{Allowed: true})
		mStore.On("Get", ctx, doc.StoragePath).
			Return(io.NopCloser(bytes.NewReader(tampered)), storage.ObjectInfo{}, nil)

		_, err := svc.Download(ctx, "doc-1", "bob")

		assert.ErrorIs(t, err, crypto.ErrIntegrity)
		mDocs.AssertNotCalled(t, "RecordView", mock.Anything, mock.Anything)
	})

	t.Run("view still delivered when document destroyed underneath", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(mockLifecycle)
		svc := NewExchangeService(engine, mStore, mDocs, nil)

		mDocs.On("Get", ctx, "doc-1").Return(doc, nil)
		mDocs.On("EvaluateAccess", doc, "bob").Return(AccessDecision{Allowed: true})
		blobGet(mStore)
		mDocs.On("RecordView", ctx, "doc-1").Return(0, ErrNotFound)

		res, err := svc.Download(ctx, "doc-1", "bob")

		require.NoError(t, err)
		assert.Equal(t, plaintext, res.Content)
		assert.False(t, res.Destroyed)
		mDocs.AssertNotCalled(t, "ApplyDestructionPolicy", mock.Anything, mock.Anything, mock.Anything)
	})
}
