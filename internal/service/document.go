package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"briefcase/internal/model"
	"briefcase/internal/repository"
	"briefcase/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("document not found")
)

// Access denial reasons. Denials are expected outcomes, communicated as
// values, never as errors: only storage failures are errors here.
const (
	ReasonNotParticipant = "you do not have permission to access this document"
	ReasonExpired        = "document has expired"
	ReasonViewLimit      = "view limit has been reached"
	ReasonNotSender      = "only the sender can delete this document"
)

// AccessDecision is the outcome of an access-policy evaluation.
type AccessDecision struct {
	Allowed bool
	Reason  string
}

// AccessDeniedError wraps a policy denial for flows that must abort on one
// (explicit delete by a non-sender, download by a non-party). The reason is
// safe to show to the caller.
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string { return e.Reason }

// DocumentService is the lifecycle manager for document records: creation,
// access-policy evaluation, view accounting, and destruction. It never touches
// ciphertext contents; blobs are referenced by storage path only.
type DocumentService interface {
	// Create persists a new active document with a zero view count.
	// Cross-field policy validation (e.g., view limit > 0) belongs to the caller.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// ListSent returns documents sent by the given user.
	ListSent(ctx context.Context, userID string) ([]model.Document, error)

	// ListReceived returns documents received by the given user.
	ListReceived(ctx context.Context, userID string) ([]model.Document, error)

	// EvaluateAccess decides whether userID may read the document right now.
	// Only sender and recipient are parties; expiry denies both; the view
	// limit binds the recipient only — it bounds recipient exposure, not
	// sender review.
	EvaluateAccess(doc *model.Document, userID string) AccessDecision

	// RecordView atomically increments the document's view count and returns
	// the post-increment value.
	RecordView(ctx context.Context, id string) (int, error)

	// ApplyDestructionPolicy re-evaluates the document after a recipient view.
	// viewCount must be the authoritative post-increment count from
	// RecordView. Returns true if the document was destroyed.
	ApplyDestructionPolicy(ctx context.Context, doc *model.Document, viewCount int) (bool, error)

	// Delete is sender-initiated destruction. Non-senders get an
	// AccessDeniedError; deleting an already-destroyed document succeeds.
	Delete(ctx context.Context, id, userID string) error

	// SweepExpired destroys every document whose expiry has passed and
	// returns the number removed. Safe to run concurrently with reads and
	// with itself.
	SweepExpired(ctx context.Context) (int, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	repo  repository.DocumentRepository
	store storage.Storage
	clock Clock
	log   *logrus.Entry
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(repo repository.DocumentRepository, store storage.Storage, clock Clock) DocumentService {
	if clock == nil {
		clock = RealClock{}
	}
	return &documentService{
		repo:  repo,
		store: store,
		clock: clock,
		log:   logrus.WithField("component", "lifecycle"),
	}
}

func (s *documentService) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.clock.Now().UTC()
	}
	doc.ViewCount = 0

	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return stored, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) ListSent(ctx context.Context, userID string) ([]model.Document, error) {
	return s.repo.FindBySender(ctx, userID)
}

func (s *documentService) ListReceived(ctx context.Context, userID string) ([]model.Document, error) {
	return s.repo.FindByRecipient(ctx, userID)
}

func (s *documentService) EvaluateAccess(doc *model.Document, userID string) AccessDecision {
	if !doc.IsParty(userID) {
		return AccessDecision{Reason: ReasonNotParticipant}
	}
	if doc.Expired(s.clock.Now()) {
		return AccessDecision{Reason: ReasonExpired}
	}
	// Only recipient reads consume the limit; the sender may always review
	// what they sent.
	if userID == doc.RecipientID && doc.ViewLimit != nil && doc.ViewCount >= *doc.ViewLimit {
		return AccessDecision{Reason: ReasonViewLimit}
	}
	return AccessDecision{Allowed: true}
}

func (s *documentService) RecordView(ctx context.Context, id string) (int, error) {
	count, err := s.repo.IncrementViewCount(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("record view: %w", err)
	}
	return count, nil
}

func (s *documentService) ApplyDestructionPolicy(ctx context.Context, doc *model.Document, viewCount int) (bool, error) {
	destroy := doc.Expired(s.clock.Now()) ||
		(doc.ViewLimit != nil && viewCount >= *doc.ViewLimit)
	if !destroy {
		return false, nil
	}

	if err := s.destroy(ctx, doc.ID, doc.StoragePath); err != nil {
		return false, err
	}
	s.log.WithFields(logrus.Fields{"document_id": doc.ID, "view_count": viewCount}).
		Info("document auto-deleted (expired or view limit reached)")
	return true, nil
}

func (s *documentService) Delete(ctx context.Context, id, userID string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		// Already destroyed: deletion is idempotent, concurrent attempts on
		// the same document must not error.
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if doc.SenderID != userID {
		return &AccessDeniedError{Reason: ReasonNotSender}
	}
	if err := s.destroy(ctx, doc.ID, doc.StoragePath); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"document_id": doc.ID, "user_id": userID}).
		Info("document deleted by sender")
	return nil
}

func (s *documentService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.FindExpiredBefore(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("find expired documents: %w", err)
	}

	removed := 0
	for _, doc := range expired {
		if err := s.destroy(ctx, doc.ID, doc.StoragePath); err != nil {
			s.log.WithError(err).WithField("document_id", doc.ID).
				Error("failed to destroy expired document")
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.WithField("count", removed).Info("expired documents removed")
	}
	return removed, nil
}

// destroy removes the metadata record, then the ciphertext blob. The metadata
// row goes first: once it is gone the document is gone from the exchange, and
// a blob delete failure leaves only a tolerated orphan, reconciled out of
// band. A missing metadata row is success so concurrent destruction attempts
// stay idempotent.
func (s *documentService) destroy(ctx context.Context, id, storagePath string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}
	if err := s.store.Delete(ctx, storagePath); err != nil {
		s.log.WithError(err).WithField("storage_path", storagePath).
			Error("failed to delete blob; orphan left in content store")
	}
	return nil
}
