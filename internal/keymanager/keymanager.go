// Package keymanager stores the provider API key encrypted at rest so the
// dashboard operator can set it once and restart freely. The store holds a
// single credential; everything else in the service stays in memory.
package keymanager

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// ErrLocked is returned when the store has not been unlocked yet.
var ErrLocked = errors.New("key store is locked")

// ErrNoCredential is returned when no API key has been stored.
var ErrNoCredential = errors.New("no credential stored")

// keyStore is the on-disk layout. The file itself is plain JSON; only the
// credential payload is encrypted.
type keyStore struct {
	Version        string    `json:"version"`
	PasswordSalt   string    `json:"password_salt"`
	PasswordVerify string    `json:"password_verify"`
	EncryptedKey   string    `json:"encrypted_key,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// KeyManager manages secure storage and retrieval of the provider credential.
type KeyManager struct {
	storePath string
	password  []byte
	store     *keyStore
	mu        sync.RWMutex
	unlocked  bool
}

// NewKeyManager creates a key manager backed by storePath.
func NewKeyManager(storePath string) *KeyManager {
	return &KeyManager{
		storePath: storePath,
		store:     &keyStore{},
	}
}

// Unlock opens (or initializes) the store with the given password.
func (km *KeyManager) Unlock(password string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	km.password = []byte(password)

	if err := km.loadStore(); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to unlock key store: %w", err)
		}
		km.store = &keyStore{Version: "1.0"}
		if err := km.initializePasswordSalt(); err != nil {
			return fmt.Errorf("failed to initialize password: %w", err)
		}
		if err := km.saveStore(); err != nil {
			return fmt.Errorf("failed to initialize key store: %w", err)
		}
	}

	if km.store.PasswordVerify != "" {
		if err := km.verifyPassword(password); err != nil {
			km.password = nil
			return err
		}
	}

	km.unlocked = true
	return nil
}

// IsUnlocked reports whether the store is open.
func (km *KeyManager) IsUnlocked() bool {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.unlocked
}

// SetCredential encrypts and stores the provider API key.
func (km *KeyManager) SetCredential(apiKey string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if !km.unlocked {
		return ErrLocked
	}

	encrypted, err := km.encrypt([]byte(apiKey))
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	km.store.EncryptedKey = base64.StdEncoding.EncodeToString(encrypted)
	km.store.UpdatedAt = time.Now()

	if err := km.saveStore(); err != nil {
		return fmt.Errorf("failed to save key store: %w", err)
	}
	return nil
}

// Credential decrypts and returns the stored API key.
func (km *KeyManager) Credential() (string, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if !km.unlocked {
		return "", ErrLocked
	}
	if km.store.EncryptedKey == "" {
		return "", ErrNoCredential
	}

	encrypted, err := base64.StdEncoding.DecodeString(km.store.EncryptedKey)
	if err != nil {
		return "", fmt.Errorf("failed to decode credential: %w", err)
	}
	plaintext, err := km.decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return string(plaintext), nil
}

// HasCredential reports whether a key is stored, without decrypting it.
func (km *KeyManager) HasCredential() bool {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.store.EncryptedKey != ""
}

// DeleteCredential removes the stored API key.
func (km *KeyManager) DeleteCredential() error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if !km.unlocked {
		return ErrLocked
	}

	km.store.EncryptedKey = ""
	km.store.UpdatedAt = time.Now()
	return km.saveStore()
}

// Lock locks the store and clears the password from memory.
func (km *KeyManager) Lock() {
	km.mu.Lock()
	defer km.mu.Unlock()

	for i := range km.password {
		km.password[i] = 0
	}
	km.password = nil
	km.unlocked = false
}

func (km *KeyManager) initializePasswordSalt() error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return err
	}

	km.store.PasswordSalt = base64.StdEncoding.EncodeToString(salt)
	verifyHash := pbkdf2.Key(km.password, salt, iterations, keySize, sha256.New)
	km.store.PasswordVerify = base64.StdEncoding.EncodeToString(verifyHash)
	return nil
}

func (km *KeyManager) verifyPassword(password string) error {
	salt, err := base64.StdEncoding.DecodeString(km.store.PasswordSalt)
	if err != nil {
		return fmt.Errorf("failed to decode password salt: %w", err)
	}

	derived := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	if base64.StdEncoding.EncodeToString(derived) != km.store.PasswordVerify {
		return errors.New("invalid password")
	}
	return nil
}

// encrypt seals data with AES-GCM under a key derived from the password.
// A fresh salt and nonce are prepended to the ciphertext.
func (km *KeyManager) encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	key := pbkdf2.Key(km.password, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	result := make([]byte, 0, saltSize+len(nonce)+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

func (km *KeyManager) decrypt(data []byte) ([]byte, error) {
	if len(data) < saltSize {
		return nil, errors.New("invalid encrypted data")
	}

	salt := data[:saltSize]
	data = data[saltSize:]

	key := pbkdf2.Key(km.password, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("invalid encrypted data")
	}

	return gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
}

func (km *KeyManager) loadStore() error {
	data, err := os.ReadFile(km.storePath)
	if err != nil {
		return err
	}

	var store keyStore
	if err := json.Unmarshal(data, &store); err != nil {
		return err
	}
	km.store = &store
	return nil
}

func (km *KeyManager) saveStore() error {
	data, err := json.MarshalIndent(km.store, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(km.storePath), 0700); err != nil {
		return err
	}
	return os.WriteFile(km.storePath, data, 0600)
}
