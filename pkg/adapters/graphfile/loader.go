// Package graphfile loads wizard graphs from YAML or JSON files.
package graphfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/carepath/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.GraphLoader over a file.
type Loader struct {
	path string
}

// New creates a loader for path. The format follows the extension; anything but .json is YAML.
func New(path string) *Loader {
	return &Loader{path: path}
}

// LoadGraph reads and decodes the file.
func (l *Loader) LoadGraph() (*domain.Graph, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(l.path), ".json") {
		format = FormatJSON
	}

	g, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(l.path), err)
	}
	return g, nil
}

// Format is the encoding of a graph document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Parse decodes a graph document. Unknown keys are rejected so typos surface as errors.
// Numeric option ids and route keys (e.g. 12) are kept in decimal string form.
func Parse(data []byte, format Format) (*domain.Graph, error) {
	var doc map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse graph json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse graph yaml: %w", err)
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("graph document is empty")
	}

	// JSON documents use the camelCase key of the API representation.
	if steps, ok := doc["steps"].([]any); ok {
		for _, raw := range steps {
			if step, ok := raw.(map[string]any); ok {
				if cond, ok := step["conditionalNavigation"]; ok {
					step["conditional_navigation"] = cond
					delete(step, "conditionalNavigation")
				}
			}
		}
	}

	var g domain.Graph
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &g,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return &g, nil
}
