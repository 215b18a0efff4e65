package compliance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

// ErrNoPlaybook is returned when no deterministic rule set is configured
// for a (service, action) pair. The orchestrator treats this as an engine
// gap: UNCERTAIN outcome, escalate.
var ErrNoPlaybook = errors.New("compliance: no playbook configured")

// playbookSchema validates the structural shape of a playbook file
// before it is admitted to the registry.
const playbookSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["schema_version", "service", "action", "steps"],
	"properties": {
		"schema_version": {"type": "string", "minLength": 1},
		"jurisdiction": {"type": "string"},
		"service": {"type": "string", "minLength": 1},
		"action": {"type": "string", "minLength": 1},
		"steps": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"requirements": {
						"type": "array",
						"items": {"type": "string"}
					}
				}
			}
		}
	}
}`

// schemaVersions is the range of playbook schema versions this build
// understands.
var schemaVersions = mustConstraint("^1.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Registry resolves playbooks by (service, action). Playbooks are loaded
// once and never mutated afterwards.
type Registry struct {
	playbooks map[string]contracts.Playbook
	schema    *jsonschema.Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() (*Registry, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	const url = "https://schemas.mesob.local/playbook.schema.json"
	if err := compiler.AddResource(url, strings.NewReader(playbookSchema)); err != nil {
		return nil, fmt.Errorf("compliance: load playbook schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compliance: compile playbook schema: %w", err)
	}
	return &Registry{
		playbooks: make(map[string]contracts.Playbook),
		schema:    schema,
	}, nil
}

// Register validates and adds one playbook.
func (r *Registry) Register(playbook contracts.Playbook) error {
	if err := r.validate(playbook); err != nil {
		return err
	}
	r.playbooks[key(playbook.Service, playbook.Action)] = playbook
	return nil
}

// LoadFile parses, validates and registers a YAML playbook file.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("compliance: read playbook %s: %w", path, err)
	}
	var playbook contracts.Playbook
	if err := yaml.Unmarshal(data, &playbook); err != nil {
		return fmt.Errorf("compliance: parse playbook %s: %w", path, err)
	}
	if err := r.Register(playbook); err != nil {
		return fmt.Errorf("compliance: playbook %s: %w", path, err)
	}
	return nil
}

// LoadDir registers every .yaml/.yml playbook under dir.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("compliance: read playbook dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Lookup resolves the playbook for a (service, action) pair.
func (r *Registry) Lookup(service, action string) (contracts.Playbook, error) {
	playbook, ok := r.playbooks[key(service, action)]
	if !ok {
		return contracts.Playbook{}, fmt.Errorf("%w for %s/%s", ErrNoPlaybook, service, action)
	}
	return playbook, nil
}

// Len returns the number of registered playbooks.
func (r *Registry) Len() int {
	return len(r.playbooks)
}

func (r *Registry) validate(playbook contracts.Playbook) error {
	// Structural validation runs over the JSON projection so the schema
	// sees exactly what the wire format would carry.
	raw, err := json.Marshal(playbook)
	if err != nil {
		return fmt.Errorf("compliance: marshal playbook: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("compliance: decode playbook: %w", err)
	}
	if err := r.schema.Validate(doc); err != nil {
		return fmt.Errorf("compliance: playbook schema validation: %w", err)
	}

	version, err := semver.NewVersion(playbook.SchemaVersion)
	if err != nil {
		return fmt.Errorf("compliance: invalid schema_version %q: %w", playbook.SchemaVersion, err)
	}
	if !schemaVersions.Check(version) {
		return fmt.Errorf("compliance: unsupported schema_version %q (want %s)", playbook.SchemaVersion, schemaVersions)
	}
	return nil
}

func key(service, action string) string {
	normalize := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
	}
	return normalize(service) + "/" + normalize(action)
}
