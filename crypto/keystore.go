package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/google/uuid"
)

var (
	ErrEmptyKeystorePath = errors.New("crypto: empty keystore path")
	ErrNilKey            = errors.New("crypto: nil private key")
	// ErrWrongPassphrase is returned when a keystore cannot be decrypted.
	ErrWrongPassphrase = errors.New("crypto: could not decrypt keystore with the given passphrase")
)

// ScryptParams tunes keystore encryption cost.
type ScryptParams struct {
	N int
	P int
}

var (
	StandardScrypt = ScryptParams{N: keystore.StandardScryptN, P: keystore.StandardScryptP}
	LightScrypt    = ScryptParams{N: keystore.LightScryptN, P: keystore.LightScryptP}
)

// SaveToKeystore writes key as a v3 keystore file encrypted with the standard
// scrypt cost.
func SaveToKeystore(path string, key *PrivateKey, passphrase string) error {
	return SaveToKeystoreWithParams(path, key, passphrase, StandardScrypt)
}

// SaveToKeystoreWithParams writes key as a v3 keystore file. Missing parent
// directories are created with 0700 permissions and the file is replaced
// atomically.
func SaveToKeystoreWithParams(path string, key *PrivateKey, passphrase string, params ScryptParams) error {
	if key == nil || key.PrivateKey == nil {
		return ErrNilKey
	}
	if path == "" {
		return ErrEmptyKeystorePath
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	encoded, err := keystore.EncryptKey(&keystore.Key{
		Id:         id,
		Address:    key.PubKey().Address().Array(),
		PrivateKey: key.PrivateKey,
	}, passphrase, params.N, params.P)
	if err != nil {
		return fmt.Errorf("crypto: encrypt keystore: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFromKeystore decrypts a v3 keystore file.
func LoadFromKeystore(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, ErrEmptyKeystorePath
	}
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		if errors.Is(err, keystore.ErrDecrypt) {
			return nil, ErrWrongPassphrase
		}
		return nil, fmt.Errorf("crypto: decode keystore: %w", err)
	}
	return &PrivateKey{PrivateKey: decrypted.PrivateKey}, nil
}
