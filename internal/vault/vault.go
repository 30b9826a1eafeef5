package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/mvlachos/agora/internal/store"
)

// SecretPrefix marks an agent env value as a secret reference:
// env: {OPENAI_API_KEY: "secret:openai-key"}.
const SecretPrefix = "secret:"

// Vault provides AES-256-GCM encryption/decryption with a passphrase-derived key.
type Vault struct {
	key [32]byte
}

// New creates a Vault by deriving an AES-256 key from the passphrase via Argon2id.
// The salt is deterministic (SHA-256 of passphrase), so the same passphrase always
// produces the same key across restarts.
func New(passphrase string) *Vault {
	salt := sha256.Sum256([]byte(passphrase))
	key := argon2.IDKey([]byte(passphrase), salt[:16], 1, 64*1024, 4, 32)

	v := &Vault{}
	copy(v.key[:], key)
	return v
}

// Encrypt encrypts plaintext using AES-256-GCM with a random nonce.
func (v *Vault) Encrypt(plaintext []byte) (ciphertext, nonce []byte, err error) {
	gcm, err := v.gcm()
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM with the provided nonce.
func (v *Vault) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return plaintext, nil
}

func (v *Vault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// SecretGetter fetches stored secret ciphertext by name. *store.Store
// satisfies it.
type SecretGetter interface {
	GetSecret(name string) (*store.Secret, error)
}

// ResolveEnv expands secret:NAME references in an agent env map to
// their decrypted values. Unresolvable references are dropped with a
// warning so a missing secret degrades one env var, not the session.
func (v *Vault) ResolveEnv(env map[string]string, secrets SecretGetter) map[string]string {
	if len(env) == 0 {
		return env
	}

	resolved := make(map[string]string, len(env))
	for key, value := range env {
		name, ok := strings.CutPrefix(value, SecretPrefix)
		if !ok {
			resolved[key] = value
			continue
		}

		sec, err := secrets.GetSecret(name)
		if err != nil {
			slog.Warn("secret lookup failed", "name", name, "env", key, "error", err)
			continue
		}
		if sec == nil {
			slog.Warn("secret not found", "name", name, "env", key)
			continue
		}

		plaintext, err := v.Decrypt(sec.Value, sec.Nonce)
		if err != nil {
			slog.Warn("secret decrypt failed", "name", name, "env", key, "error", err)
			continue
		}
		resolved[key] = string(plaintext)
	}
	return resolved
}
