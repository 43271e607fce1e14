package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
)

// KeyLength defines AES-256 key size.
const KeyLength = 32

const keyFile = "vault.key"

// Vault seals small secrets with a random local key kept next to them.
type Vault struct {
	dir string
	key []byte
}

// Path returns the key path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, keyFile)
}

// Exists checks if the key file exists in dir.
func Exists(dir string) bool {
	_, err := os.Stat(Path(dir))
	return err == nil
}

// Open loads the key from dir, generating one on first use.
func Open(dir string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	key, err := load(dir)
	if errors.Is(err, os.ErrNotExist) {
		key, err = generate(dir)
	}
	if err != nil {
		return nil, err
	}
	return &Vault{dir: dir, key: key}, nil
}

func generate(dir string) ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	b64 := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(Path(dir), []byte(b64), 0o600); err != nil {
		return nil, err
	}
	return key, nil
}

func load(dir string) ([]byte, error) {
	b, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, err
	}
	key, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, err
	}
	if len(key) != KeyLength {
		return nil, errors.New("invalid key length")
	}
	return key, nil
}

// Seal encrypts plaintext with AES-256-GCM. The result is nonce||ciphertext;
// aad is authenticated but not stored.
func (v *Vault) Seal(plaintext, aad []byte) ([]byte, error) {
	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return append(nonce, gcm.Seal(nil, nonce, plaintext, aad)...), nil
}

// Unseal reverses Seal. It fails when the key or aad differ.
func (v *Vault) Unseal(sealed, aad []byte) ([]byte, error) {
	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ct := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ct, aad)
}

func (v *Vault) gcm() (cipher.AEAD, error) {
	blk, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blk)
}
