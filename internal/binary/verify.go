package binary

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// Verifier handles cryptographic verification of release archives
type Verifier struct {
	keyringPath string // Optional armored or binary keyring
}

// NewVerifier creates a new verifier. An empty keyringPath disables GPG
// verification.
func NewVerifier(keyringPath string) *Verifier {
	return &Verifier{
		keyringPath: keyringPath,
	}
}

// GPGEnabled reports whether signatures are checked.
func (v *Verifier) GPGEnabled() bool {
	return v.keyringPath != ""
}

// VerifySHA256 compares the digest of path with expected, a hex string in
// either case. On mismatch the file is removed.
func (v *Verifier) VerifySHA256(path, expected string) (*VerificationResult, error) {
	actual, err := calculateSHA256(path)
	if err != nil {
		return &VerificationResult{
			Method:  VerificationSHA256,
			Success: false,
			Error:   fmt.Errorf("calculate checksum: %w", err),
		}, err
	}

	if !checksumsEqual(actual, expected) {
		os.Remove(path)
		err := fmt.Errorf("%w for %s:\nactual:   %s\nexpected: %s", ErrChecksumMismatch, path, actual, strings.ToLower(expected))
		return &VerificationResult{
			Method:  VerificationSHA256,
			Success: false,
			Error:   err,
		}, err
	}

	return &VerificationResult{
		Method:  VerificationSHA256,
		Success: true,
	}, nil
}

// checksumsEqual compares two hex digests case-insensitively in constant time.
func checksumsEqual(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// VerifyGPG verifies a detached signature over path with the configured
// keyring.
func (v *Verifier) VerifyGPG(path, signaturePath string) (*VerificationResult, error) {
	fail := func(err error) (*VerificationResult, error) {
		err = fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		return &VerificationResult{Method: VerificationGPG, Success: false, Error: err}, err
	}

	keyring, err := v.loadKeyring()
	if err != nil {
		return fail(fmt.Errorf("load keyring: %w", err))
	}

	binaryFile, err := os.Open(path)
	if err != nil {
		return fail(fmt.Errorf("open archive: %w", err))
	}
	defer binaryFile.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return fail(fmt.Errorf("open signature: %w", err))
	}
	defer sigFile.Close()

	// Verify signature (try armored first)
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, binaryFile, sigFile, nil)
	if err != nil {
		// Try non-armored signature
		binaryFile.Seek(0, io.SeekStart)
		sigFile.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, binaryFile, sigFile, nil)
	}
	if err != nil {
		return fail(fmt.Errorf("verify signature: %w", err))
	}

	return &VerificationResult{
		Method:  VerificationGPG,
		Success: true,
	}, nil
}

// loadKeyring loads the GPG keyring
func (v *Verifier) loadKeyring() (openpgp.EntityList, error) {
	keyringFile, err := os.Open(v.keyringPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		// Try reading as non-armored keyring
		keyringFile.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
