// Package encryption scrambles chat message content before it is relayed to
// a room. The capability never fails its caller: any internal error returns
// the input unchanged, in both directions.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
	"os"
)

const defaultSecret = "quickchat-relay-secret"

// key is derived once at startup. SHA-256 maps an arbitrary-length secret to
// a valid AES-256 key.
var key = deriveKey(secret())

func secret() string {
	if s := os.Getenv("CHAT_SECRET_KEY"); s != "" {
		return s
	}
	return defaultSecret
}

func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// Encrypt returns the AES-GCM ciphertext of value, base64-encoded with the
// nonce prepended. On any error the original value is returned.
func Encrypt(value string) string {
	block, err := aes.NewCipher(key)
	if err != nil {
		slog.Error("encrypt failed", "error", err)
		return value
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		slog.Error("encrypt failed", "error", err)
		return value
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		slog.Error("encrypt failed", "error", err)
		return value
	}
	sealed := gcm.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(sealed)
}

// Decrypt reverses Encrypt. Anything that does not decode as a ciphertext
// produced by Encrypt is returned unchanged.
func Decrypt(encrypted string) string {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return encrypted
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		slog.Error("decrypt failed", "error", err)
		return encrypted
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		slog.Error("decrypt failed", "error", err)
		return encrypted
	}
	if len(raw) < gcm.NonceSize() {
		return encrypted
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return encrypted
	}
	return string(plain)
}
