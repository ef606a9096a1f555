package binary

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVerifySHA256(t *testing.T) {
	data := []byte("release archive")
	digest := sha256Hex(data)

	tests := []struct {
		name     string
		expected string
		wantErr  bool
	}{
		{name: "matching digest", expected: digest},
		{name: "upper case digest", expected: strings.ToUpper(digest)},
		{name: "mismatch", expected: strings.Repeat("0", 64), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestFile(t, filepath.Join(t.TempDir(), "a.tar.gz"), data)

			result, err := NewVerifier("").VerifySHA256(path, tt.expected)
			if tt.wantErr {
				if !errors.Is(err, ErrChecksumMismatch) {
					t.Fatalf("expected ErrChecksumMismatch, got %v", err)
				}
				if result.Success {
					t.Error("result should not be successful")
				}
				if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
					t.Error("mismatched file should be removed")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.Success || result.Method != VerificationSHA256 {
				t.Errorf("unexpected result: %+v", result)
			}
		})
	}
}

func TestVerifySHA256_SingleBitFlip(t *testing.T) {
	data := []byte("release archive contents")
	digest := sha256Hex(data)

	for _, pos := range []int{0, len(data) / 2, len(data) - 1} {
		for _, bit := range []byte{0x01, 0x80} {
			flipped := append([]byte(nil), data...)
			flipped[pos] ^= bit
			path := writeTestFile(t, filepath.Join(t.TempDir(), "a.tar.gz"), flipped)

			if _, err := NewVerifier("").VerifySHA256(path, digest); !errors.Is(err, ErrChecksumMismatch) {
				t.Errorf("byte %d bit %#x: expected ErrChecksumMismatch, got %v", pos, bit, err)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("byte %d bit %#x: corrupted file should be removed", pos, bit)
			}
		}
	}
}

func TestVerifySHA256_MissingFile(t *testing.T) {
	if _, err := NewVerifier("").VerifySHA256(filepath.Join(t.TempDir(), "missing"), "00"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestVerifyGPG(t *testing.T) {
	signer := newTestSigner(t)
	dir := t.TempDir()

	data := []byte("release archive")
	archive := writeTestFile(t, filepath.Join(dir, "a.tar.gz"), data)
	sig := writeTestFile(t, filepath.Join(dir, "a.tar.gz.sig"), signer.sign(t, data))
	keyring := writeTestFile(t, filepath.Join(dir, "keyring.asc"), signer.keyring)

	verifier := NewVerifier(keyring)
	if !verifier.GPGEnabled() {
		t.Fatal("verifier with keyring should have GPG enabled")
	}

	t.Run("valid signature", func(t *testing.T) {
		result, err := verifier.VerifyGPG(archive, sig)
		if err != nil {
			t.Fatalf("VerifyGPG() error = %v", err)
		}
		if !result.Success || result.Method != VerificationGPG {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("tampered archive", func(t *testing.T) {
		tampered := writeTestFile(t, filepath.Join(dir, "b.tar.gz"), []byte("something else"))
		if _, err := verifier.VerifyGPG(tampered, sig); !errors.Is(err, ErrSignatureInvalid) {
			t.Errorf("expected ErrSignatureInvalid, got %v", err)
		}
	})

	t.Run("signed by another key", func(t *testing.T) {
		other := newTestSigner(t)
		otherSig := writeTestFile(t, filepath.Join(dir, "other.sig"), other.sign(t, data))
		if _, err := verifier.VerifyGPG(archive, otherSig); !errors.Is(err, ErrSignatureInvalid) {
			t.Errorf("expected ErrSignatureInvalid, got %v", err)
		}
	})

	t.Run("missing keyring", func(t *testing.T) {
		v := NewVerifier(filepath.Join(dir, "nope.asc"))
		if _, err := v.VerifyGPG(archive, sig); !errors.Is(err, ErrSignatureInvalid) {
			t.Errorf("expected ErrSignatureInvalid, got %v", err)
		}
	})
}

func TestVerifierWithoutKeyring(t *testing.T) {
	if NewVerifier("").GPGEnabled() {
		t.Error("verifier without keyring should not check signatures")
	}
}
