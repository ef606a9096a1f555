// Package validate checks secret files, paths and payloads before any
// external command runs or any result is distributed.
package validate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws/endpoints"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/payload"
)

var (
	// ErrFileNotFound is returned when the secret file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrOutsideWorkspace is returned when a path resolves outside the
	// workspace root.
	ErrOutsideWorkspace = errors.New("path is outside the workspace")

	// ErrUnsupportedFileType is returned for extensions other than the
	// JSON and YAML families.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrMissingEnvironment is returned when population is requested but the
	// decrypted document has no usable environment mapping.
	ErrMissingEnvironment = errors.New("missing environment")
)

// SecretFile is a validated secret file.
type SecretFile struct {
	Path   string
	Format payload.Format
}

var fileTypes = map[string]payload.Format{
	".json":  payload.FormatJSON,
	".ejson": payload.FormatJSON,
	".yaml":  payload.FormatYAML,
	".yml":   payload.FormatYAML,
	".eyaml": payload.FormatYAML,
	".eyml":  payload.FormatYAML,
}

// SupportedExtensions lists accepted file extensions in display order.
var SupportedExtensions = []string{".json", ".ejson", ".yaml", ".yml", ".eyaml", ".eyml"}

// FileExists fails with ErrFileNotFound unless path names an existing file.
func FileExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: JSON file does not exist at path: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	return nil
}

// DetectFileType maps the file extension onto a payload format.
func DetectFileType(path string) (payload.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if format, ok := fileTypes[ext]; ok {
		return format, nil
	}
	return "", fmt.Errorf("%w %q for %s (supported: %s)",
		ErrUnsupportedFileType, ext, path, strings.Join(SupportedExtensions, ", "))
}

// PathWithinWorkspace fails with ErrOutsideWorkspace unless path is root or
// a descendant of it. Relative paths are resolved against the working
// directory. label names the input in the error message.
func PathWithinWorkspace(path, root, label string) error {
	resolvedRoot, err := resolve(root)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	resolvedPath, err := resolve(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", label, err)
	}

	rel, err := filepath.Rel(resolvedRoot, resolvedPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s %q resolves to %s, outside %s",
			ErrOutsideWorkspace, label, path, resolvedPath, resolvedRoot)
	}
	return nil
}

// resolve returns the absolute, cleaned form of path with symlinks
// evaluated. For paths that do not exist yet, the deepest existing ancestor
// is evaluated and the rest is appended.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	existing := abs
	var rest []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}

	evaluated, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{evaluated}, rest...)...), nil
}

// EnvironmentKeyPresence fails with ErrMissingEnvironment when the payload
// has no environment mapping or the mapping is empty.
func EnvironmentKeyPresence(p *payload.Payload) error {
	if p == nil || !p.HasEnvironment {
		return fmt.Errorf("%w: decrypted file has no %q mapping", ErrMissingEnvironment, payload.EnvironmentKey)
	}
	if len(p.Environment) == 0 && len(p.Skipped) == 0 {
		return fmt.Errorf("%w: %q mapping is empty", ErrMissingEnvironment, payload.EnvironmentKey)
	}
	return nil
}

// Region reports whether region belongs to a partition known to the AWS
// SDK. Unknown regions are not an error so that regions newer than the SDK
// keep working; callers log a warning instead.
func Region(region string) bool {
	_, ok := endpoints.PartitionForRegion(endpoints.DefaultPartitions(), region)
	return ok
}

// Check validates a secret file against the workspace root and returns its
// type.
func Check(path, root string) (*SecretFile, error) {
	format, err := DetectFileType(path)
	if err != nil {
		return nil, err
	}
	if err := FileExists(path); err != nil {
		return nil, err
	}
	if err := PathWithinWorkspace(path, root, "file-path"); err != nil {
		return nil, err
	}
	return &SecretFile{Path: path, Format: format}, nil
}
