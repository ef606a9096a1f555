package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/platform"
)

// Values maps input names (hyphenated) to their string form, ready to be
// applied to command-line flags.
type Values map[string]string

// Parser evaluates Lua configuration files.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a parser. A nil detector leaves the platform table
// undefined.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile reads and evaluates a Lua configuration file.
func (p *Parser) ParseFile(ctx context.Context, path string) (Values, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if info.Size() > MaxConfigSize {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", info.Size(), MaxConfigSize),
		}
	}

	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return p.ParseString(ctx, string(code))
}

// ParseString evaluates Lua configuration code.
func (p *Parser) ParseString(ctx context.Context, code string) (Values, error) {
	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(code); err != nil {
		return nil, &ParseError{Message: "Lua error", Detail: err.Error()}
	}

	return extractValues(L)
}

// ParseError represents a configuration file error.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractValues reads the global ejson table. Nil fields are dropped so that
// platform.when(...) can switch an input off.
func extractValues(L *lua.LState) (Values, error) {
	global := L.GetGlobal(luaGlobal)
	table, ok := global.(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("missing or invalid '%s' table", luaGlobal),
			Detail:  fmt.Sprintf("expected table, got %s", global.Type()),
		}
	}

	values := Values{}
	var parseErr error
	table.ForEach(func(key, value lua.LValue) {
		if parseErr != nil {
			return
		}

		k, ok := key.(lua.LString)
		if !ok {
			parseErr = &ParseError{Message: "invalid key", Detail: fmt.Sprintf("expected string key, got %s", key.Type())}
			return
		}
		name := strings.ReplaceAll(string(k), "_", "-")
		if !knownInputs[name] {
			parseErr = &ParseError{Message: "unknown input", Detail: string(k)}
			return
		}

		switch v := value.(type) {
		case lua.LString:
			values[name] = string(v)
		case lua.LBool:
			values[name] = strconv.FormatBool(bool(v))
		case lua.LNumber:
			values[name] = v.String()
		default:
			if value.Type() == lua.LTNil {
				return
			}
			parseErr = &ParseError{
				Message: "invalid value",
				Detail:  fmt.Sprintf("%s: expected string, boolean or number, got %s", k, value.Type()),
			}
		}
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return values, nil
}
