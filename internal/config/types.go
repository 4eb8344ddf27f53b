package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultRegistryName is reserved and can never be removed.
	DefaultRegistryName = "default"

	// DefaultRegistryURL is the index of the default registry.
	DefaultRegistryURL = "https://raw.githubusercontent.com/grip-pm/registry/main/index.yaml"

	// DefaultIndexTTL is how long a cached registry index is trusted.
	DefaultIndexTTL = time.Hour
)

// Config is the content of config.lua.
type Config struct {
	Registries []Registry `json:"registries"`
	Options    Options    `json:"options,omitempty"`
}

// Registry is a named source of package definitions. Lower priority values
// are consulted first.
type Registry struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Priority int    `json:"priority"`
}

// Options contains tunables that are not registries.
type Options struct {
	// Minutes a cached registry index stays fresh. Zero means the default.
	IndexTTLMinutes int `json:"index_ttl_minutes,omitempty"`
}

// Default returns the configuration used when no config.lua exists.
func Default() *Config {
	return &Config{
		Registries: []Registry{
			{Name: DefaultRegistryName, URL: DefaultRegistryURL, Priority: 0},
		},
	}
}

// IndexTTL returns the configured cache lifetime.
func (c *Config) IndexTTL() time.Duration {
	if c.Options.IndexTTLMinutes <= 0 {
		return DefaultIndexTTL
	}
	return time.Duration(c.Options.IndexTTLMinutes) * time.Minute
}

// FindRegistry returns the index of the registry called name, or -1.
func (c *Config) FindRegistry(name string) int {
	for i, r := range c.Registries {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// ensureDefault puts the default registry first when the document omits it.
func (c *Config) ensureDefault() {
	if c.FindRegistry(DefaultRegistryName) >= 0 {
		return
	}
	def := Registry{Name: DefaultRegistryName, URL: DefaultRegistryURL}
	c.Registries = append([]Registry{def}, c.Registries...)
}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if len(c.Registries) > MaxRegistryCount {
		return &ValidationError{
			Field:   "registries",
			Message: fmt.Sprintf("too many registries (%d), maximum is %d", len(c.Registries), MaxRegistryCount),
		}
	}

	seen := make(map[string]bool, len(c.Registries))
	for i, r := range c.Registries {
		field := fmt.Sprintf("registries[%d]", i)
		if err := ValidateRegistryName(r.Name); err != nil {
			return &ValidationError{Field: field + ".name", Message: err.Error()}
		}
		if seen[r.Name] {
			return &ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate registry %q", r.Name)}
		}
		seen[r.Name] = true

		if err := ValidateRegistryURL(r.URL); err != nil {
			return &ValidationError{Field: field + ".url", Message: err.Error()}
		}
	}

	if c.Options.IndexTTLMinutes < 0 {
		return &ValidationError{Field: "options.index_ttl_minutes", Message: "must not be negative"}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

// registryNamePattern keeps names usable as directory names.
var registryNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateRegistryName checks that name is non-empty and path-safe.
func ValidateRegistryName(name string) error {
	if name == "" {
		return fmt.Errorf("registry name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("registry name too long (%d chars, max %d)", len(name), MaxNameLength)
	}
	if !registryNamePattern.MatchString(name) {
		return fmt.Errorf("invalid registry name %q (letters, digits, '.', '_' and '-' only)", name)
	}
	return nil
}

// ValidateRegistryURL accepts http(s) and file URLs, plain paths and git
// remotes in SSH form.
func ValidateRegistryURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("registry URL cannot be empty")
	}

	// SSH format: git@github.com:user/repo.git
	if strings.HasPrefix(raw, "git@") {
		if len(strings.SplitN(raw, ":", 2)) != 2 {
			return fmt.Errorf("invalid SSH git URL format")
		}
		return nil
	}

	if !strings.Contains(raw, "://") {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid registry URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "file", "ssh":
		return nil
	default:
		return fmt.Errorf("unsupported registry URL scheme %q", u.Scheme)
	}
}
