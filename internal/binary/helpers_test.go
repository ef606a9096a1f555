package binary

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// buildTarGz returns a tar.gz archive holding files, in the given order.
func buildTarGz(t *testing.T, files [][2]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, f := range files {
		header := &tar.Header{
			Name:     f[0],
			Mode:     0o755,
			Size:     int64(len(f[1])),
			Typeflag: tar.TypeReg,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", f[0], err)
		}
		if _, err := tarWriter.Write([]byte(f[1])); err != nil {
			t.Fatalf("failed to write content for %s: %v", f[0], err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeTestFile(t *testing.T, path string, data []byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// testSigner is a throwaway GPG identity.
type testSigner struct {
	entity  *openpgp.Entity
	keyring []byte // armored public key
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()

	entity, err := openpgp.NewEntity("Release Signer", "test", "release@example.com", nil)
	if err != nil {
		t.Fatalf("failed to create entity: %v", err)
	}

	var pub bytes.Buffer
	w, err := armor.Encode(&pub, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	return &testSigner{entity: entity, keyring: pub.Bytes()}
}

func (s *testSigner) sign(t *testing.T, data []byte) []byte {
	t.Helper()

	var sig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&sig, s.entity, bytes.NewReader(data), nil); err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	return sig.Bytes()
}

// releaseServer serves release metadata, archives and signatures.
type releaseServer struct {
	*httptest.Server

	mu            sync.Mutex
	archive       []byte
	digest        string // as published, "sha256:<hex>"
	signature     []byte
	archiveErrors []int // statuses returned before the archive is served
	hits          map[string]int
	authHeader    string
}

func newReleaseServer(t *testing.T, archive []byte) *releaseServer {
	t.Helper()

	rs := &releaseServer{
		archive: archive,
		digest:  "sha256:" + sha256Hex(archive),
		hits:    map[string]int{},
	}
	rs.Server = httptest.NewServer(http.HandlerFunc(rs.handle))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *releaseServer) handle(w http.ResponseWriter, r *http.Request) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	switch {
	case strings.Contains(r.URL.Path, "/releases/tags/"):
		rs.hits["metadata"]++
		rs.authHeader = r.Header.Get("Authorization")

		parts := strings.Split(r.URL.Path, "/")
		tag := parts[len(parts)-1]
		repo := parts[2] + "/" + parts[3]
		if tag != "v1.5.2" && tag != "v0.2.2" {
			http.NotFound(w, r)
			return
		}
		tool := strings.Split(repo, "/")[1]
		version := strings.TrimPrefix(tag, "v")

		var assets []assetResponse
		for _, arch := range []string{"amd64", "arm64"} {
			name := tool + "_" + version + "_linux_" + arch + ".tar.gz"
			assets = append(assets, assetResponse{
				Name:               name,
				BrowserDownloadURL: rs.URL + "/dl/" + name,
				Digest:             rs.digest,
			})
		}
		json.NewEncoder(w).Encode(releaseResponse{TagName: tag, Assets: assets})

	case strings.HasSuffix(r.URL.Path, ".sig"):
		rs.hits["signature"]++
		if rs.signature == nil {
			http.NotFound(w, r)
			return
		}
		w.Write(rs.signature)

	case strings.HasSuffix(r.URL.Path, ".tar.gz"):
		rs.hits["archive"]++
		if len(rs.archiveErrors) > 0 {
			status := rs.archiveErrors[0]
			rs.archiveErrors = rs.archiveErrors[1:]
			w.WriteHeader(status)
			return
		}
		w.Write(rs.archive)

	default:
		http.NotFound(w, r)
	}
}

func (rs *releaseServer) count(kind string) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.hits[kind]
}

type recordingPublisher struct {
	dirs []string
}

func (p *recordingPublisher) AddPath(dir string) error {
	p.dirs = append(p.dirs, dir)
	return nil
}
