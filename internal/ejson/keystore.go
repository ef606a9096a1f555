package ejson

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvKeyDir overrides the directory the ejson tool reads private keys
	// from.
	EnvKeyDir = "EJSON_KEYDIR"

	// DefaultKeyDir is the ejson tool's own default key directory.
	DefaultKeyDir = "/opt/ejson/keys"
)

// KeyDir returns EJSON_KEYDIR when set, otherwise DefaultKeyDir.
func KeyDir(getenv func(string) string) string {
	if dir := getenv(EnvKeyDir); dir != "" {
		return dir
	}
	return DefaultKeyDir
}

// WritePrivateKey stores privateKey under dir, named after publicKey, with
// owner-only permissions.
func WritePrivateKey(dir, publicKey, privateKey string) (string, error) {
	if privateKey == "" {
		return "", ErrMissingPrivateKey
	}
	if err := checkKeyName(publicKey); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create key directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, publicKey)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(privateKey)), 0o600); err != nil {
		return "", fmt.Errorf("write private key: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return "", fmt.Errorf("set private key permissions: %w", err)
	}
	return path, nil
}

// checkKeyName rejects public keys that would not name a single file
// inside the key directory.
func checkKeyName(publicKey string) error {
	switch {
	case strings.TrimSpace(publicKey) == "":
		return fmt.Errorf("%w: empty", ErrInvalidPublicKey)
	case strings.ContainsRune(publicKey, 0):
		return fmt.Errorf("%w: contains NUL byte", ErrInvalidPublicKey)
	case publicKey == ".", strings.Contains(publicKey, ".."),
		filepath.Base(publicKey) != publicKey, strings.ContainsAny(publicKey, `/\`):
		return fmt.Errorf("%w: %q is not a file name", ErrInvalidPublicKey, publicKey)
	}
	return nil
}
