package validator

import (
	"fmt"
	"sort"

	"github.com/aretw0/carepath/pkg/domain"
)

// ValidateGraph checks a step graph for configuration errors and reports all of them at once.
// A nil error means the engine can run the graph without hitting a dangling reference.
func ValidateGraph(g *domain.Graph) error {
	if g == nil {
		return &AggregateError{Errors: []error{&ValidationError{Reason: "graph is nil"}}}
	}

	v := &graphValidator{graph: g, ids: make(map[string]bool, len(g.Steps))}
	v.steps()
	v.navigation()
	v.progress()
	v.reachability()

	if len(v.errs) > 0 {
		return &AggregateError{Errors: v.errs}
	}
	return nil
}

type graphValidator struct {
	graph *domain.Graph
	ids   map[string]bool
	errs  []error
}

func (v *graphValidator) fail(stepID string, sentinel error, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{
		StepID: stepID,
		Reason: fmt.Sprintf(format, args...),
		Err:    sentinel,
	})
}

func (v *graphValidator) known(target string) bool {
	return target == domain.MainViewID || v.ids[target]
}

func (v *graphValidator) steps() {
	if len(v.graph.Steps) == 0 {
		v.fail("", nil, "graph has no steps")
	}

	fields := make(map[domain.Field]string)
	for i := range v.graph.Steps {
		step := &v.graph.Steps[i]

		switch {
		case step.ID == "":
			v.fail("", nil, "step at position %d has no id", i+1)
			continue
		case step.ID == domain.EntryStepID || step.ID == domain.MainViewID:
			v.fail(step.ID, nil, "id is reserved")
		case v.ids[step.ID]:
			v.fail(step.ID, nil, "duplicate id")
		}
		v.ids[step.ID] = true

		if !step.Type.Valid() {
			v.fail(step.ID, nil, "unknown type %q", step.Type)
		}
		if step.Type.HasOptions() && len(step.Options) == 0 {
			v.fail(step.ID, nil, "%s step requires options", step.Type)
		}
		if !step.Type.HasOptions() && len(step.Options) > 0 {
			v.fail(step.ID, nil, "%s step cannot declare options", step.Type)
		}
		if step.Type.HasOptions() && step.Field == "" {
			v.fail(step.ID, nil, "%s step requires a field", step.Type)
		}

		seen := make(map[domain.OptionID]bool, len(step.Options))
		for _, opt := range step.Options {
			if opt.ID == "" {
				v.fail(step.ID, nil, "option %q has no id", opt.Label)
			}
			if seen[opt.ID] {
				v.fail(step.ID, nil, "duplicate option id %q", opt.ID)
			}
			seen[opt.ID] = true
		}

		if step.Field != "" {
			if owner, dup := fields[step.Field]; dup {
				v.fail(step.ID, nil, "field %q already written by step %q", step.Field, owner)
			}
			fields[step.Field] = step.ID
		}
	}

	for i := range v.graph.Steps {
		v.conditional(&v.graph.Steps[i])
	}
}

func (v *graphValidator) conditional(step *domain.StepConfig) {
	cond := step.ConditionalNavigation
	if cond == nil {
		return
	}
	if step.Field == "" {
		v.fail(step.ID, domain.ErrUnknownField, "conditional navigation on a step without a field")
	} else if cond.Field != "" && cond.Field != step.Field {
		v.fail(step.ID, domain.ErrUnknownField, "conditional navigation field %q does not match step field %q", cond.Field, step.Field)
	}
	if len(cond.Routes) == 0 {
		v.fail(step.ID, nil, "conditional navigation has no routes")
	}

	for _, answer := range sortedKeys(cond.Routes) {
		target := cond.Routes[answer]
		if !v.known(target) {
			v.fail(step.ID, domain.ErrStepNotFound, "conditional route %q targets unknown step %q", answer, target)
		}
		if step.Type == domain.StepRadio {
			if _, ok := step.Option(answer); !ok {
				v.fail(step.ID, nil, "conditional route %q matches no option", answer)
			}
		}
	}
}

func (v *graphValidator) navigation() {
	if _, ok := v.graph.Navigation[domain.EntryStepID]; !ok {
		v.fail(domain.EntryStepID, domain.ErrTransitionNotFound, "navigation has no %q source", domain.EntryStepID)
	}

	for _, source := range sortedKeys(v.graph.Navigation) {
		if source != domain.EntryStepID && !v.ids[source] {
			v.fail(source, domain.ErrStepNotFound, "navigation source is not a step")
			continue
		}
		edges := v.graph.Navigation[source]
		for _, name := range sortedKeys(edges) {
			if name == "" {
				v.fail(source, nil, "transition with empty name")
			}
			if target := edges[name]; !v.known(target) {
				v.fail(source, domain.ErrStepNotFound, "transition %q targets unknown step %q", name, target)
			}
		}
	}
}

func (v *graphValidator) progress() {
	for _, id := range sortedKeys(v.graph.Progress) {
		pct := v.graph.Progress[id]
		if !v.ids[id] {
			v.fail(id, domain.ErrStepNotFound, "progress declared for unknown step")
		}
		if pct < 0 || pct > 100 {
			v.fail(id, nil, "progress %d out of range 0-100", pct)
		}
	}
}

// reachability crawls from the main view over table edges and conditional routes.
func (v *graphValidator) reachability() {
	visited := map[string]bool{domain.EntryStepID: true}
	queue := []string{domain.EntryStepID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var targets []string
		for _, target := range v.graph.Navigation[current] {
			targets = append(targets, target)
		}
		if step, ok := v.graph.Step(current); ok && step.ConditionalNavigation != nil {
			for _, target := range step.ConditionalNavigation.Routes {
				targets = append(targets, target)
			}
		}

		for _, target := range targets {
			if target == domain.MainViewID || !v.ids[target] || visited[target] {
				continue
			}
			visited[target] = true
			queue = append(queue, target)
		}
	}

	for _, step := range v.graph.Steps {
		if step.ID != "" && !visited[step.ID] {
			v.fail(step.ID, nil, "unreachable from the main view")
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
