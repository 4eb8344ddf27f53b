package config

import (
	"bytes"
	"fmt"
	"strings"
)

// Generator generates Lua configuration code from a Config.
type Generator struct {
	indent string
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ",
	}
}

// Generate renders cfg as config.lua source that Parser reads back to an
// equal Config.
func (g *Generator) Generate(cfg *Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	var buf bytes.Buffer

	buf.WriteString("-- grip configuration\n")
	buf.WriteString("-- The platform table (platform.os, platform.arch, platform.when, ...)\n")
	buf.WriteString("-- is available while this file is evaluated.\n\n")

	buf.WriteString("grip = {\n")
	g.writeRegistries(&buf, cfg.Registries)
	if cfg.Options.IndexTTLMinutes > 0 {
		g.writeOptions(&buf, cfg.Options)
	}
	buf.WriteString("}\n")

	return buf.String(), nil
}

func (g *Generator) writeRegistries(buf *bytes.Buffer, regs []Registry) {
	buf.WriteString(g.indent)
	buf.WriteString("registries = {\n")

	for _, r := range regs {
		fmt.Fprintf(buf, "%s%s{ name = %s, url = %s, priority = %d },\n",
			g.indent, g.indent,
			g.quoteLuaString(r.Name),
			g.quoteLuaString(r.URL),
			r.Priority,
		)
	}

	buf.WriteString(g.indent)
	buf.WriteString("},\n")
}

func (g *Generator) writeOptions(buf *bytes.Buffer, opts Options) {
	buf.WriteString(g.indent)
	buf.WriteString("options = {\n")
	fmt.Fprintf(buf, "%s%s%s = %d,\n", g.indent, g.indent, luaFieldIndexTTLMins, opts.IndexTTLMinutes)
	buf.WriteString(g.indent)
	buf.WriteString("},\n")
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
