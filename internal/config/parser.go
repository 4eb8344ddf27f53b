package config

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/grip/internal/platform"
)

// Parser turns config.lua source into a Config.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a parser. A nil detector skips the platform table.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseString parses Lua configuration source. The context bounds execution
// time of the user's code.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	if len(luaCode) > MaxConfigSize {
		return nil, &ParseError{
			Message: "config too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", len(luaCode), MaxConfigSize),
		}
	}

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

	if err := L.DoString(luaCode); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("evaluate config: %w", ctx.Err())
		}
		return nil, &ParseError{
			Message: "Lua error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global "grip" table.
func extractConfig(L *lua.LState) (*Config, error) {
	gripVal := L.GetGlobal(luaGlobalGrip)
	if gripVal.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'grip' table",
			Detail:  fmt.Sprintf("expected table, got %s", gripVal.Type()),
		}
	}
	table := gripVal.(*lua.LTable)

	cfg := &Config{}

	switch v := table.RawGetString(luaFieldRegistries); v.Type() {
	case lua.LTTable:
		regs, err := extractRegistries(v.(*lua.LTable))
		if err != nil {
			return nil, err
		}
		cfg.Registries = regs
	case lua.LTNil:
	default:
		return nil, &ParseError{Message: "invalid 'registries'", Detail: fmt.Sprintf("expected table, got %s", v.Type())}
	}

	if v := table.RawGetString(luaFieldOptions); v.Type() == lua.LTTable {
		cfg.Options = extractOptions(v.(*lua.LTable))
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return cfg, nil
}

// extractRegistries reads the registry list in array order. nil holes left
// by platform conditionals are skipped.
func extractRegistries(table *lua.LTable) ([]Registry, error) {
	type entry struct {
		idx int
		val *lua.LTable
	}
	var entries []entry
	var bad error

	table.ForEach(func(key, value lua.LValue) {
		n, ok := key.(lua.LNumber)
		if !ok || value.Type() == lua.LTNil {
			return
		}
		t, ok := value.(*lua.LTable)
		if !ok {
			bad = &ParseError{
				Message: "invalid registry entry",
				Detail:  fmt.Sprintf("registries[%d]: expected table, got %s", int(n), value.Type()),
			}
			return
		}
		entries = append(entries, entry{idx: int(n), val: t})
	})
	if bad != nil {
		return nil, bad
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	regs := make([]Registry, 0, len(entries))
	for _, e := range entries {
		r := Registry{}
		if v := e.val.RawGetString(luaFieldName); v.Type() == lua.LTString {
			r.Name = v.String()
		}
		if v := e.val.RawGetString(luaFieldURL); v.Type() == lua.LTString {
			r.URL = v.String()
		}
		if v := e.val.RawGetString(luaFieldPriority); v.Type() == lua.LTNumber {
			r.Priority = int(lua.LVAsNumber(v))
		}
		regs = append(regs, r)
	}
	return regs, nil
}

func extractOptions(table *lua.LTable) Options {
	opts := Options{}
	if v := table.RawGetString(luaFieldIndexTTLMins); v.Type() == lua.LTNumber {
		opts.IndexTTLMinutes = int(lua.LVAsNumber(v))
	}
	return opts
}

// FormatError formats a ParseError anywhere in err's chain for user display.
// Wrapping context is kept; non-verbose output drops the Lua stack traceback.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		return err.Error()
	}
	prefix := strings.TrimSuffix(err.Error(), parseErr.Error())
	if verbose {
		return fmt.Sprintf("%s%s\n\nDetails:\n%s", prefix, parseErr.Message, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s%s: %s", prefix, parseErr.Message, detail)
}
