// Package transaction records tool installs so that an interrupted or
// concurrent install never leaves a half-written binary that later runs
// would trust.
//
// Every install is guarded by a lock file and tracked by a JSON record that
// is written atomically. A record in the completed state doubles as the
// receipt that lets later runs skip the download.
package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State represents the current state of an install.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// ErrNoRecord is returned by Load when no install record exists.
var ErrNoRecord = errors.New("no install record")

// InstallTxn tracks one install of one tool version.
type InstallTxn struct {
	Version      int       `json:"version"` // Schema version for future evolution
	ID           string    `json:"id"`      // UUID for unique identification
	Tool         string    `json:"tool"`
	ToolVersion  string    `json:"tool_version"`
	Asset        string    `json:"asset"`
	Digest       string    `json:"digest,omitempty"`
	BinaryPath   string    `json:"binary_path,omitempty"`
	BinarySHA256 string    `json:"binary_sha256,omitempty"`
	Verified     []string  `json:"verified,omitempty"`
	State        State     `json:"state"`
	Timestamp    time.Time `json:"timestamp"`
	LastError    string    `json:"last_error,omitempty"`
}

// New creates a pending install record.
func New(tool, toolVersion, asset string) *InstallTxn {
	return &InstallTxn{
		Version:     1,
		ID:          uuid.New().String(),
		Tool:        tool,
		ToolVersion: toolVersion,
		Asset:       asset,
		State:       StatePending,
		Timestamp:   time.Now().UTC(),
	}
}

func recordPath(dir, tool string) string {
	return filepath.Join(dir, fmt.Sprintf("install-%s.json", tool))
}

// Save writes the record to disk atomically.
// Uses write-then-rename pattern for atomicity.
func (t *InstallTxn) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create transaction directory: %w", err)
	}

	finalPath := recordPath(dir, t.Tool)
	tmpPath := finalPath + "." + t.ID + ".tmp"

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal install record: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temporary install record: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename install record: %w", err)
	}

	// Sync directory for durability
	df, err := os.Open(dir)
	if err == nil {
		if syncErr := df.Sync(); syncErr != nil {
			df.Close()
			return fmt.Errorf("sync directory: %w", syncErr)
		}
		df.Close()
	}

	return nil
}

// Load reads the install record of tool from dir.
func Load(dir, tool string) (*InstallTxn, error) {
	data, err := os.ReadFile(recordPath(dir, tool))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("read install record: %w", err)
	}

	var txn InstallTxn
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("unmarshal install record: %w", err)
	}
	return &txn, nil
}

// SetState moves the record to state, keeping err as the last error.
func (t *InstallTxn) SetState(state State, err error) {
	t.State = state
	t.Timestamp = time.Now().UTC()
	if err != nil {
		t.LastError = err.Error()
	} else {
		t.LastError = ""
	}
}

// Completed reports whether the record describes a finished install of
// toolVersion whose binary is still present, executable and unchanged
// since it was installed.
func (t *InstallTxn) Completed(toolVersion string) bool {
	if t.State != StateCompleted || t.ToolVersion != toolVersion || t.BinaryPath == "" || t.BinarySHA256 == "" {
		return false
	}
	info, err := os.Stat(t.BinaryPath)
	if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return false
	}
	sum, err := FileSHA256(t.BinaryPath)
	if err != nil {
		return false
	}
	return strings.EqualFold(sum, t.BinarySHA256)
}

// FileSHA256 returns the hex SHA-256 digest of the file at path.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
