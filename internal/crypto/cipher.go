// Package crypto implements the authenticated encryption engine for document
// payloads: AES-256-GCM under a single process-wide key derived once at
// startup, with a fresh random IV per encryption and the auth tag stored
// separately from the ciphertext.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/scrypt"
)

const (
	keyLen = 32 // AES-256
	ivLen  = 16
	tagLen = 16

	// scrypt parameters for deriving the working key from the configured
	// secret. The salt is a fixed constant: acceptable for a single-tenant
	// key, not for multi-tenant key separation.
	scryptN    = 16384
	scryptR    = 8
	scryptP    = 1
	scryptSalt = "salt"
)

// ErrIntegrity is returned by Decrypt when the authentication tag does not
// verify or the stored IV/tag are malformed. The payload is corrupted or has
// been tampered with; callers must treat this as fatal for the request, never
// as retryable.
var ErrIntegrity = errors.New("decryption failed: payload corrupted or tampered with")

// EncryptionResult carries the output of one Encrypt call. IV and AuthTag are
// hex-encoded for storage alongside the document metadata.
type EncryptionResult struct {
	Ciphertext []byte
	IV         string
	AuthTag    string
}

// Engine encrypts and decrypts document payloads. The key is derived once in
// NewEngine and never mutated afterwards, so an Engine is safe for
// unsynchronized concurrent use.
type Engine struct {
	key []byte
}

// NewEngine derives the working key from the configured secret. When secret is
// empty a random one is generated, which is suitable for development only:
// restarting the process makes every previously encrypted document permanently
// undecryptable.
func NewEngine(secret string) (*Engine, error) {
	if secret == "" {
		raw := make([]byte, keyLen)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("generate ephemeral secret: %w", err)
		}
		secret = hex.EncodeToString(raw)
		logrus.Warn("ENCRYPTION_KEY not set; using a generated key for development only")
	}

	key, err := scrypt.Key([]byte(secret), []byte(scryptSalt), scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}
	return &Engine{key: key}, nil
}

func (e *Engine) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, ivLen)
}

// Encrypt seals the plaintext under a fresh random 128-bit IV. Encrypting the
// same payload twice yields a different IV and a different ciphertext.
func (e *Engine) Encrypt(plaintext []byte) (*EncryptionResult, error) {
	aead, err := e.gcm()
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	// Seal appends the tag to the ciphertext; split it off so the tag is
	// stored with the metadata rather than inside the blob.
	sealed := aead.Seal(nil, iv, plaintext, nil)
	n := len(sealed) - tagLen

	return &EncryptionResult{
		Ciphertext: sealed[:n],
		IV:         hex.EncodeToString(iv),
		AuthTag:    hex.EncodeToString(sealed[n:]),
	}, nil
}

// Decrypt reconstructs the cipher from the stored IV, verifies the auth tag,
// and returns the plaintext. Any malformed input or verification failure
// yields ErrIntegrity; no partial plaintext is ever returned.
func (e *Engine) Decrypt(ciphertext []byte, ivHex, authTagHex string) ([]byte, error) {
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivLen {
		return nil, ErrIntegrity
	}
	tag, err := hex.DecodeString(authTagHex)
	if err != nil || len(tag) != tagLen {
		return nil, ErrIntegrity
	}

	aead, err := e.gcm()
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+tagLen)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

// ObfuscateName produces the storage name for an encrypted blob. The name
// leaks nothing of the original filename beyond its raw extension, is
// collision-resistant across concurrent calls (millisecond prefix plus 128
// random bits), and contains no path separators.
func ObfuscateName(originalName string) (string, error) {
	random := make([]byte, 16)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("generate storage name: %w", err)
	}

	ext := sanitizeExt(originalName)
	return fmt.Sprintf("%d-%s.%s.encrypted", time.Now().UnixMilli(), hex.EncodeToString(random), ext), nil
}

// sanitizeExt extracts the extension and strips anything that is not
// alphanumeric, so the result is always safe as a path component.
func sanitizeExt(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return "enc"
	}
	ext := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return -1
	}, name[idx+1:])
	if ext == "" {
		return "enc"
	}
	return ext
}
