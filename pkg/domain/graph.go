package domain

// Reserved identifiers of the navigation table.
const (
	// EntryStepID is the synthetic source id used while no step is active (the main view).
	EntryStepID = "entry"
	// MainViewID is the navigation target meaning "return to the main, non-wizard view".
	MainViewID = "null"
	// DefaultTransition is used when Advance is called without a transition name.
	DefaultTransition = "next"
)

// MainView is the position of the main view. Steps occupy positions 1..N.
const MainView = 0

// NavigationTable maps a source step id (or EntryStepID) and a transition name to a target
// step id (or MainViewID).
type NavigationTable map[string]map[string]string

// Lookup returns the target of a named transition leaving from.
func (t NavigationTable) Lookup(from, transition string) (string, bool) {
	edges, ok := t[from]
	if !ok {
		return "", false
	}
	target, ok := edges[transition]
	return target, ok
}

// Graph is the declarative definition of a wizard.
// The order of Steps is the default sequential path.
type Graph struct {
	Name       string          `json:"name" yaml:"name" mapstructure:"name"`
	Steps      []StepConfig    `json:"steps" yaml:"steps" mapstructure:"steps"`
	Navigation NavigationTable `json:"navigation" yaml:"navigation" mapstructure:"navigation"`

	// Progress is the static step id -> percentage table. It is not derived from graph depth.
	Progress map[string]int `json:"progress" yaml:"progress" mapstructure:"progress"`
}

// Len returns the number of steps.
func (g *Graph) Len() int {
	return len(g.Steps)
}

// Position returns the 1-based position of a step id.
// MainViewID and the empty string resolve to MainView.
func (g *Graph) Position(id string) (int, bool) {
	if id == "" || id == MainViewID {
		return MainView, true
	}
	for i := range g.Steps {
		if g.Steps[i].ID == id {
			return i + 1, true
		}
	}
	return 0, false
}

// StepAt returns the step at a 1-based position.
func (g *Graph) StepAt(pos int) (*StepConfig, bool) {
	if pos < 1 || pos > len(g.Steps) {
		return nil, false
	}
	return &g.Steps[pos-1], true
}

// Step returns the step with the given id.
func (g *Graph) Step(id string) (*StepConfig, bool) {
	pos, ok := g.Position(id)
	if !ok || pos == MainView {
		return nil, false
	}
	return g.StepAt(pos)
}

// StepID returns the id at a position, or MainViewID for the main view.
func (g *Graph) StepID(pos int) string {
	if step, ok := g.StepAt(pos); ok {
		return step.ID
	}
	return MainViewID
}

// NavigationSource returns the navigation table key for a position.
func (g *Graph) NavigationSource(pos int) string {
	if step, ok := g.StepAt(pos); ok {
		return step.ID
	}
	return EntryStepID
}

// ProgressAt returns the static completion percentage of a position.
func (g *Graph) ProgressAt(pos int) int {
	step, ok := g.StepAt(pos)
	if !ok {
		return 0
	}
	return g.Progress[step.ID]
}

// Fields returns the set of answer fields declared by the graph.
func (g *Graph) Fields() map[Field]*StepConfig {
	fields := make(map[Field]*StepConfig, len(g.Steps))
	for i := range g.Steps {
		if f := g.Steps[i].Field; f != "" {
			fields[f] = &g.Steps[i]
		}
	}
	return fields
}
