package securestore

import (
	"crypto/rand"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// ErrWrongPassphrase is returned when a sealed store cannot be opened.
var ErrWrongPassphrase = errors.New("secure store: wrong passphrase or corrupted file")

// scrypt parameters (interactive-login strength)
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

type envelope struct {
	Salt  []byte `json:"salt"`
	Nonce []byte `json:"nonce"`
	CT    []byte `json:"ct"`
}

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
}

func seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ct := aead.Seal(nil, nonce, plaintext, salt)
	return json.Marshal(envelope{Salt: salt, Nonce: nonce, CT: ct})
}

func open(passphrase string, blob []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, ErrWrongPassphrase
	}
	key, err := deriveKey(passphrase, env.Salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	pt, err := aead.Open(nil, env.Nonce, env.CT, env.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}
