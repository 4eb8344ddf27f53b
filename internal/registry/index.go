// Package registry resolves package names to GitHub repositories by
// consulting the configured registries in priority order.
//
// Each registry publishes an index document (YAML or JSON). Indexes are
// validated against an embedded schema, then cached per registry in a small
// SQLite database so repeated lookups stay offline until the cache expires.
package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

//go:embed index.schema.json
var indexSchemaJSON []byte

// PackageDefinition maps a package name to the repository publishing it.
type PackageDefinition struct {
	Name           string `json:"name"`
	Repository     string `json:"repository"`
	ExecutableName string `json:"executable_name,omitempty"`
	Description    string `json:"description,omitempty"`

	// Registry is the name of the registry the definition came from.
	Registry string `json:"-"`
}

// Executable returns the executable name, falling back to the package name.
func (d *PackageDefinition) Executable() string {
	if d.ExecutableName != "" {
		return d.ExecutableName
	}
	return d.Name
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func indexSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(indexSchemaJSON))
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("index.schema.json", doc); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("index.schema.json")
	})
	return schema, schemaErr
}

// ParseIndex decodes and validates an index document. Both the list form
// (packages: [{name, repository}]) and the map form
// (packages: {name: {repository}}) are accepted. Any structural problem is
// reported as ErrInvalidRemoteMetadata.
func ParseIndex(data []byte) ([]PackageDefinition, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: index is not valid YAML or JSON: %v", errs.ErrInvalidRemoteMetadata, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: index is empty", errs.ErrInvalidRemoteMetadata)
	}

	// yaml.v3 yields map[string]any for string-keyed mappings, which encodes
	// cleanly; anything else fails here.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: index has non-string keys: %v", errs.ErrInvalidRemoteMetadata, err)
	}

	sch, err := indexSchema()
	if err != nil {
		return nil, fmt.Errorf("compile index schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(normalized))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRemoteMetadata, err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRemoteMetadata, err)
	}

	var doc struct {
		Packages json.RawMessage `json:"packages"`
	}
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRemoteMetadata, err)
	}

	trimmed := bytes.TrimSpace(doc.Packages)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return decodeMapForm(trimmed)
	}
	return decodeListForm(trimmed)
}

func decodeListForm(data []byte) ([]PackageDefinition, error) {
	var list []PackageDefinition
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRemoteMetadata, err)
	}

	seen := make(map[string]bool, len(list))
	defs := make([]PackageDefinition, 0, len(list))
	for _, d := range list {
		if seen[d.Name] {
			log.Debug("duplicate index entry ignored", "package", d.Name)
			continue
		}
		seen[d.Name] = true
		defs = append(defs, d)
	}
	return defs, nil
}

func decodeMapForm(data []byte) ([]PackageDefinition, error) {
	var m map[string]PackageDefinition
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidRemoteMetadata, err)
	}

	defs := make([]PackageDefinition, 0, len(m))
	for name, d := range m {
		d.Name = name
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}
