package iam

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

var ErrDecrypt = errors.New("failed to decrypt scenario file")

// Decrypt opens a Fernet token with a url-safe base64 key, the format
// scenario files are distributed in. Tokens never expire.
func Decrypt(token []byte, key string) ([]byte, error) {
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid key: %w", ErrDecrypt, err)
	}

	plain := fernet.VerifyAndDecrypt(bytes.TrimSpace(token), 0, []*fernet.Key{k})
	if plain == nil {
		return nil, fmt.Errorf("%w: token rejected by key", ErrDecrypt)
	}
	return plain, nil
}

// Encrypt seals a scenario file for distribution.
func Encrypt(plain []byte, key string) ([]byte, error) {
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	return fernet.EncryptAndSign(plain, k)
}
