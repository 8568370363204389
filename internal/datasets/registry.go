// Package datasets holds the dataset prompt profiles consulted by the AI
// extraction adapter. Profiles are loaded once at startup and never mutated.
package datasets

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/BerylCAtieno/argus/internal/models"
)

//go:embed datasets.yaml
var defaultProfiles []byte

// Profile is the prompt configuration for one dataset.
type Profile struct {
	ID           string         `yaml:"id"`
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	SystemPrompt string         `yaml:"systemPrompt"`
	OutputSchema map[string]any `yaml:"outputSchema"`

	schema *jsonschema.Schema
}

// Validate checks a decoded model response against the profile's output
// schema. Profiles without a schema accept any JSON object.
func (p Profile) Validate(v any) error {
	if p.schema == nil {
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("expected a JSON object, got %T", v)
		}
		return nil
	}
	if err := p.schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match %s schema: %w", p.ID, err)
	}
	return nil
}

// Dataset converts the profile into its API representation.
func (p Profile) Dataset() models.Dataset {
	return models.Dataset{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		SystemPrompt: p.SystemPrompt,
		OutputSchema: p.OutputSchema,
	}
}

type file struct {
	Datasets []Profile `yaml:"datasets"`
}

// Registry resolves dataset ids to profiles.
type Registry struct {
	profiles map[string]Profile
	order    []string
	fallback Profile
}

// Load reads profiles from path, or from the built-in set when path is empty.
func Load(path string) (*Registry, error) {
	data := defaultProfiles
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read datasets file: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse builds a registry from YAML. A "default-dataset" entry is required.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse datasets: %w", err)
	}

	r := &Registry{profiles: make(map[string]Profile, len(f.Datasets))}
	for _, p := range f.Datasets {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("dataset without id")
		}
		if _, dup := r.profiles[p.ID]; dup {
			return nil, fmt.Errorf("duplicate dataset id %q", p.ID)
		}
		if strings.TrimSpace(p.SystemPrompt) == "" {
			return nil, fmt.Errorf("dataset %q has no systemPrompt", p.ID)
		}
		if len(p.OutputSchema) > 0 {
			s, err := compileSchema(p.ID, p.OutputSchema)
			if err != nil {
				return nil, err
			}
			p.schema = s
		}
		r.profiles[p.ID] = p
		r.order = append(r.order, p.ID)
	}

	def, ok := r.profiles[models.DatasetDefault]
	if !ok {
		return nil, fmt.Errorf("datasets must include %q", models.DatasetDefault)
	}
	r.fallback = def
	return r, nil
}

// MustDefault returns the built-in registry and panics if it is invalid.
func MustDefault() *Registry {
	r, err := Parse(defaultProfiles)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the profile for id, or the default profile for unknown ids.
func (r *Registry) Resolve(id string) Profile {
	if p, ok := r.profiles[id]; ok {
		return p
	}
	return r.fallback
}

// Lookup reports whether id is a known dataset.
func (r *Registry) Lookup(id string) (Profile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// List returns all profiles in declaration order.
func (r *Registry) List() []Profile {
	out := make([]Profile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.profiles[id])
	}
	return out
}

func compileSchema(id string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", id, err)
	}
	url := id + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add %s schema: %w", id, err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", id, err)
	}
	return s, nil
}
