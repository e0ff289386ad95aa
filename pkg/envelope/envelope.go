// Package envelope implements the hybrid encryption container used for
// confidential document exchange: the document is encrypted under a fresh
// AES-256-GCM key, and that key is wrapped with RSA-OAEP under the bank's
// published public key. Neither plaintext nor the symmetric key ever
// reaches the ledger.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
)

// ErrEnvelope is the single failure signal for the decryption path. A
// malformed envelope, a wrong key and a tampered ciphertext are
// indistinguishable to callers by design.
var ErrEnvelope = errors.New("envelope: decryption failed")

const (
	keySize   = 32 // AES-256
	nonceSize = 12 // standard GCM nonce
	tagSize   = 16
)

// Envelope is the wire format submitted to the ledger. All fields are
// base64; key is the RSA-OAEP-wrapped symmetric key.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	Key        string `json:"key"`
	IV         string `json:"iv"`
	Tag        string `json:"tag,omitempty"`
}

// Seal encrypts plaintext with a freshly generated key and IV and wraps
// the key under bankKey. The key material is not retained.
func Seal(plaintext []byte, bankKey *rsa.PublicKey) (*Envelope, error) {
	if bankKey == nil {
		return nil, errors.New("envelope: no bank public key")
	}
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	// gcm appends the authentication tag; the wire format carries it
	// as a separate field.
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, bankKey, key, nil)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Key:        base64.StdEncoding.EncodeToString(wrapped),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Tag:        base64.StdEncoding.EncodeToString(tag),
	}, nil
}

// Open unwraps the symmetric key with priv, verifies the tag and decrypts.
// Every failure returns ErrEnvelope; no partial plaintext is ever
// returned.
func (e *Envelope) Open(priv *rsa.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, ErrEnvelope
	}
	ciphertext, err := base64.StdEncoding.DecodeString(e.Ciphertext)
	if err != nil {
		return nil, ErrEnvelope
	}
	wrapped, err := base64.StdEncoding.DecodeString(e.Key)
	if err != nil {
		return nil, ErrEnvelope
	}
	nonce, err := base64.StdEncoding.DecodeString(e.IV)
	if err != nil || len(nonce) != nonceSize {
		return nil, ErrEnvelope
	}
	tag, err := base64.StdEncoding.DecodeString(e.Tag)
	if err != nil || len(tag) != tagSize {
		return nil, ErrEnvelope
	}

	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
	if err != nil || len(key) != keySize {
		return nil, ErrEnvelope
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrEnvelope
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrEnvelope
	}
	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, ErrEnvelope
	}
	return plaintext, nil
}

// Marshal serializes the envelope for ledger transmission.
func (e *Envelope) Marshal() ([]byte, error) { return json.Marshal(e) }

// Parse deserializes envelope bytes fetched from the ledger. Malformed
// input fails closed.
func Parse(b []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, ErrEnvelope
	}
	if e.Ciphertext == "" && e.Key == "" {
		return nil, ErrEnvelope
	}
	return &e, nil
}

// ParsePublicKey reads the bank's published key from PEM (PKIX or PKCS#1).
func ParsePublicKey(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errors.New("envelope: no PEM block in public key")
	}
	if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		if rsaPub, ok := pub.(*rsa.PublicKey); ok {
			return rsaPub, nil
		}
		return nil, errors.New("envelope: public key is not RSA")
	}
	return x509.ParsePKCS1PublicKey(block.Bytes)
}

// ParsePrivateKey reads the owner's key, supplied interactively at time of
// use and never persisted. Failures are reported as ErrEnvelope so the
// retrieval path stays oracle-free.
func ParsePrivateKey(pemText string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, ErrEnvelope
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, ErrEnvelope
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrEnvelope
	}
	return key, nil
}
