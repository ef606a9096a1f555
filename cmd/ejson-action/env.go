package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/config"
)

// inputPrefix is how the Actions runner passes `with:` inputs.
const inputPrefix = "INPUT_"

// setFlagsFromEnv sets every flag not given on the command line from
// INPUT_<NAME>. The runner keeps hyphens in NAME; the underscore spelling is
// accepted too since some shells cannot export hyphenated names.
func setFlagsFromEnv(fs *pflag.FlagSet, lookup func(string) (string, bool)) error {
	var errs []string
	fs.VisitAll(func(f *pflag.Flag) {
		// ignore flags set from the commandline
		if f.Changed {
			return
		}
		name := strings.ToUpper(f.Name)
		for _, key := range []string{inputPrefix + name, inputPrefix + strings.ReplaceAll(name, "-", "_")} {
			e, ok := lookup(key)
			if !ok || e == "" {
				continue
			}
			if err := fs.Set(f.Name, strings.TrimSpace(e)); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			}
			return
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("invalid input: %s", strings.Join(errs, "; "))
	}
	return nil
}

// applyConfigFile fills flags that are still unset from a Lua configuration
// file.
func applyConfigFile(ctx context.Context, fs *pflag.FlagSet, parser *config.Parser, path string) error {
	values, err := parser.ParseFile(ctx, path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		if err := fs.Set(name, values[name]); err != nil {
			return fmt.Errorf("%s: invalid value for %s: %w", path, name, err)
		}
	}
	return nil
}

// defaultInstallDir returns the tool cache of the runner, or the user cache
// directory outside of Actions.
func defaultInstallDir(getenv func(string) string) string {
	if dir := getenv("RUNNER_TOOL_CACHE"); dir != "" {
		return filepath.Join(dir, "ejson-action")
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "ejson-action")
	}
	return filepath.Join(os.TempDir(), "ejson-action")
}

// debugEnabled reports whether debug logging was requested on the command
// line or by re-running a job with debug logging.
func debugEnabled(flag bool, getenv func(string) string) bool {
	return flag || getenv("RUNNER_DEBUG") == "1"
}
