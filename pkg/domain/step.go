package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"gopkg.in/yaml.v3"
)

// StepType defines how a step collects its answer.
type StepType string

const (
	// StepRadio collects exactly one option id.
	StepRadio StepType = "radio"
	// StepCheckbox collects a list of option ids.
	StepCheckbox StepType = "checkbox"
	// StepText collects free text.
	StepText StepType = "text"
	// StepComponent is a custom screen (confirmation, offer, ...). Its answer, if any, is kept verbatim.
	StepComponent StepType = "component"
)

// Valid reports whether t is one of the known step types.
func (t StepType) Valid() bool {
	switch t {
	case StepRadio, StepCheckbox, StepText, StepComponent:
		return true
	}
	return false
}

// HasOptions reports whether steps of this type carry an option list.
func (t StepType) HasOptions() bool {
	return t == StepRadio || t == StepCheckbox
}

// OptionID identifies an option within a step.
// Numeric ids (e.g. a pill count of 12) are accepted from JSON and YAML and kept in decimal form.
type OptionID string

// UnmarshalJSON accepts both strings and numbers.
func (id *OptionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = OptionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("option id must be a string or number: %w", err)
	}
	*id = OptionID(n.String())
	return nil
}

// UnmarshalYAML accepts any scalar.
func (id *OptionID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("option id must be a scalar (line %d)", node.Line)
	}
	*id = OptionID(node.Value)
	return nil
}

// Option is one selectable answer of a radio or checkbox step.
type Option struct {
	ID          OptionID `json:"id" yaml:"id" mapstructure:"id"`
	Label       string   `json:"label" yaml:"label" mapstructure:"label"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// ConditionalNavigation routes to a step based on the answer given to Field.
// Field must be empty or equal to the owning step's field.
type ConditionalNavigation struct {
	Field  Field             `json:"field,omitempty" yaml:"field,omitempty" mapstructure:"field"`
	Routes map[string]string `json:"routes" yaml:"routes" mapstructure:"routes"`
}

// StepConfig is one node of the wizard graph.
type StepConfig struct {
	ID          string   `json:"id" yaml:"id" mapstructure:"id"`
	Type        StepType `json:"type" yaml:"type" mapstructure:"type"`
	Title       string   `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`

	// Field is the answer key this step writes. Purely informational steps leave it empty.
	Field Field `json:"field,omitempty" yaml:"field,omitempty" mapstructure:"field"`

	Options []Option `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`

	ConditionalNavigation *ConditionalNavigation `json:"conditionalNavigation,omitempty" yaml:"conditional_navigation,omitempty" mapstructure:"conditional_navigation"`
}

// Option looks up an option by id or label, comparing the string form of v.
func (s *StepConfig) Option(v any) (Option, bool) {
	key, ok := ScalarString(v)
	if !ok {
		return Option{}, false
	}
	for _, opt := range s.Options {
		if string(opt.ID) == key || opt.Label == key {
			return opt, true
		}
	}
	return Option{}, false
}

// Route returns the conditional target for an answer, if one is configured.
func (s *StepConfig) Route(answer any) (string, bool) {
	if s.ConditionalNavigation == nil {
		return "", false
	}
	key, ok := ScalarString(answer)
	if !ok {
		return "", false
	}
	target, ok := s.ConditionalNavigation.Routes[key]
	return target, ok
}

// ScalarString renders a scalar answer in the form used for option and route matching.
// Lists and maps are not scalars.
func ScalarString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case OptionID:
		return string(val), true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case json.Number:
		return val.String(), true
	case fmt.Stringer:
		return val.String(), true
	}

	// Other numeric widths and named scalar types.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return "", false
}
