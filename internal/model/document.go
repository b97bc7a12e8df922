package model

import "time"

// Document is the metadata record for one encrypted file exchanged between two
// users. This is a pure domain model with no database-specific dependencies or
// tags, so it can be used across layers (HTTP, service, storage) without
// coupling to persistence.
//
// The ciphertext lives in the object store under StoragePath; the IV and auth
// tag required to decrypt it are stored here, never inside the blob. All three
// are excluded from JSON so API responses only ever expose a metadata
// projection.
type Document struct {
	ID                string     `json:"id"`
	Filename          string     `json:"filename"`
	StoragePath       string     `json:"-"`
	MimeType          string     `json:"mime_type"`
	Size              int64      `json:"size"`
	SenderID          string     `json:"sender_id"`
	RecipientID       string     `json:"recipient_id"`
	EncryptionIV      string     `json:"-"`
	EncryptionAuthTag string     `json:"-"`
	ViewCount         int        `json:"view_count"`
	ViewLimit         *int       `json:"view_limit,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Expired reports whether the document's expiry timestamp has passed at the
// given instant. Documents with no expiry never expire.
func (d *Document) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && !now.Before(*d.ExpiresAt)
}

// IsParty reports whether userID is the sender or the recipient.
func (d *Document) IsParty(userID string) bool {
	return userID == d.SenderID || userID == d.RecipientID
}
