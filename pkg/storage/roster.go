package storage

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/felixgeelhaar/cardflow/pkg/domain/project"
	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRoster is returned when a roster document fails schema validation.
var ErrInvalidRoster = errors.New("invalid roster")

// RosterEntry pre-populates one chat's project.
type RosterEntry struct {
	ChatID      int64    `yaml:"chat_id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Creator     string   `yaml:"creator"`
	Developers  []string `yaml:"developers"`
	Testers     []string `yaml:"testers"`
	Confirmed   bool     `yaml:"confirmed"`
}

// Roster is the seed file document.
type Roster struct {
	Projects []RosterEntry `yaml:"projects"`
}

const rosterSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["projects"],
  "properties": {
    "projects": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["chat_id", "creator"],
        "properties": {
          "chat_id": { "type": "integer", "not": { "const": 0 } },
          "name": { "type": "string" },
          "description": { "type": "string" },
          "creator": { "type": "string", "minLength": 1 },
          "developers": { "type": "array", "items": { "type": "string", "minLength": 1 } },
          "testers": { "type": "array", "items": { "type": "string", "minLength": 1 } },
          "confirmed": { "type": "boolean" }
        },
        "additionalProperties": false
      }
    }
  }
}`

var rosterSchemaLoader = gojsonschema.NewStringLoader(rosterSchemaJSON)

// LoadRoster reads and validates a roster seed file.
func LoadRoster(path string) ([]RosterEntry, error) {
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	return ParseRoster(data)
}

// ParseRoster validates a YAML roster document against its schema and decodes it.
func ParseRoster(data []byte) ([]RosterEntry, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	result, err := gojsonschema.Validate(rosterSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to validate roster: %w", err)
	}
	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoster, strings.Join(issues, "; "))
	}

	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to decode roster: %w", err)
	}
	return roster.Projects, nil
}

// apply copies the entry's creator and confirmation onto p and adds the
// seeded handles to its roster. Members added at runtime are kept.
// It reports whether anything changed.
func (e RosterEntry) apply(p *project.Project) bool {
	creator := team.NormalizeHandle(e.Creator)
	devs := union(p.Developers, normalizeAll(e.Developers))
	testers := union(p.Testers, normalizeAll(e.Testers))

	changed := p.Creator != creator ||
		!slices.Equal(p.Developers, devs) ||
		!slices.Equal(p.Testers, testers) ||
		p.Confirmed != e.Confirmed

	p.Creator = creator
	p.Developers = devs
	p.Testers = testers
	p.Confirmed = e.Confirmed
	if p.Name == "" {
		p.Name = e.Name
	}
	if p.Description == "" {
		p.Description = e.Description
	}
	return changed
}

func normalizeAll(raw []string) []team.Handle {
	var out []team.Handle
	for _, r := range raw {
		h := team.NormalizeHandle(r)
		if h.IsAssignable() && !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	return out
}

// union appends the handles of add missing from base, keeping base's order.
func union(base, add []team.Handle) []team.Handle {
	out := slices.Clone(base)
	for _, h := range add {
		if !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	return out
}
