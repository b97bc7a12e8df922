package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"briefcase/internal/crypto"
	"briefcase/internal/model"
	"briefcase/internal/repository"
	"briefcase/internal/storage"
)

var (
	ErrReaderNil         = errors.New("reader is nil")
	ErrRecipientRequired = errors.New("recipient_id is required")
	ErrRecipientNotFound = errors.New("recipient user not found")
	ErrSelfSend          = errors.New("cannot send a document to yourself")
)

// UploadInput carries upload metadata supplied by the caller. SenderID is the
// authenticated identity; ViewLimit and ExpiresAt are optional policy knobs
// already validated by the transport layer (positive limit, parseable time).
type UploadInput struct {
	Filename    string
	MimeType    string
	SenderID    string
	RecipientID string
	ViewLimit   *int
	ExpiresAt   *time.Time
}

// DownloadResult is the decrypted payload plus the display metadata the
// transport layer needs for response headers. Destroyed reports whether this
// view consumed the document.
type DownloadResult struct {
	Filename  string
	MimeType  string
	Content   []byte
	Destroyed bool
}

// ExchangeService orchestrates the upload and download flows: it is the only
// place where the cipher engine, the content store and the lifecycle manager
// meet. The lifecycle manager itself never encrypts or decrypts.
type ExchangeService interface {
	// Upload encrypts the payload, stores the ciphertext blob under an
	// obfuscated name, and creates the metadata record. The blob is rolled
	// back if the metadata insert fails.
	Upload(ctx context.Context, r io.Reader, in UploadInput) (*model.Document, error)

	// Download checks access, fetches and decrypts the blob, then accounts
	// for the view and applies the destruction policy for recipient reads.
	Download(ctx context.Context, id, userID string) (*DownloadResult, error)
}

type exchangeService struct {
	cipher *crypto.Engine
	store  storage.Storage
	docs   DocumentService
	users  repository.UserRepository
	log    *logrus.Entry
}

// NewExchangeService constructs a new ExchangeService.
func NewExchangeService(cipher *crypto.Engine, store storage.Storage, docs DocumentService, users repository.UserRepository) ExchangeService {
	return &exchangeService{
		cipher: cipher,
		store:  store,
		docs:   docs,
		users:  users,
		log:    logrus.WithField("component", "exchange"),
	}
}

func (s *exchangeService) Upload(ctx context.Context, r io.Reader, in UploadInput) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if in.RecipientID == "" {
		return nil, ErrRecipientRequired
	}
	// Self-send is rejected outright: the view-limit asymmetry (sender exempt,
	// recipient bounded) has no coherent meaning when both roles are the same
	// principal.
	if in.SenderID == in.RecipientID {
		return nil, ErrSelfSend
	}
	if _, err := s.users.FindByID(ctx, in.RecipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("look up recipient: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	enc, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt upload: %w", err)
	}

	name, err := crypto.ObfuscateName(in.Filename)
	if err != nil {
		return nil, err
	}
	key := "documents/" + name

	// The blob carries raw cipher output only; IV and tag travel with the
	// metadata record.
	_, err = s.store.Put(ctx, key, bytes.NewReader(enc.Ciphertext), storage.PutObjectOptions{
		Size:        int64(len(enc.Ciphertext)),
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		Filename:          in.Filename,
		StoragePath:       key,
		MimeType:          in.MimeType,
		Size:              int64(len(plaintext)),
		SenderID:          in.SenderID,
		RecipientID:       in.RecipientID,
		EncryptionIV:      enc.IV,
		EncryptionAuthTag: enc.AuthTag,
		ViewLimit:         in.ViewLimit,
		ExpiresAt:         in.ExpiresAt,
	}
	stored, err := s.docs.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the orphaned blob from storage.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"document_id":  stored.ID,
		"sender_id":    stored.SenderID,
		"recipient_id": stored.RecipientID,
	}).Info("document uploaded")
	return stored, nil
}

func (s *exchangeService) Download(ctx context.Context, id, userID string) (*DownloadResult, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if dec := s.docs.EvaluateAccess(doc, userID); !dec.Allowed {
		return nil, &AccessDeniedError{Reason: dec.Reason}
	}

	rc, _, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("fetch blob: %w", err)
	}
	defer rc.Close()

	ciphertext, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}

	plaintext, err := s.cipher.Decrypt(ciphertext, doc.EncryptionIV, doc.EncryptionAuthTag)
	if err != nil {
		return nil, err
	}

	res := &DownloadResult{
		Filename: doc.Filename,
		MimeType: doc.MimeType,
		Content:  plaintext,
	}

	// Only recipient reads consume the view budget. A read that passed the
	// access check completes even if the document is swept or destroyed
	// underneath it, so post-view accounting failures are logged, not
	// surfaced.
	if userID == doc.RecipientID {
		count, err := s.docs.RecordView(ctx, doc.ID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				s.log.WithError(err).WithField("document_id", doc.ID).
					Error("failed to record view")
			}
			return res, nil
		}
		destroyed, err := s.docs.ApplyDestructionPolicy(ctx, doc, count)
		if err != nil {
			s.log.WithError(err).WithField("document_id", doc.ID).
				Error("failed to apply destruction policy")
			return res, nil
		}
		res.Destroyed = destroyed
	}

	return res, nil
}
