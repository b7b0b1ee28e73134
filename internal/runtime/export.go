package runtime

import "github.com/aretw0/carepath/pkg/domain"

// Export transforms answers into the flat object expected by the submission endpoint.
//
//   - checkbox: one key per selected option id, valued with the option label.
//   - radio: the step field, valued with the label of the matching option (or the raw answer).
//   - text and component: the step field, verbatim.
//
// Steps without a stored answer are omitted. The result does not depend on map iteration order,
// except when two steps emit the same key; graph order decides then, the later step wins.
func Export(graph *domain.Graph, answers domain.Answers) map[string]any {
	out := make(map[string]any)
	for i := range graph.Steps {
		step := &graph.Steps[i]
		if step.Field == "" {
			continue
		}
		value, ok := answers[step.Field]
		if !ok || value == nil {
			continue
		}

		switch step.Type {
		case domain.StepCheckbox:
			for _, selected := range selections(value) {
				key, ok := domain.ScalarString(selected)
				if !ok {
					continue
				}
				label := key
				if opt, found := step.Option(selected); found {
					key, label = string(opt.ID), opt.Label
				}
				out[key] = label
			}
		case domain.StepRadio:
			if opt, found := step.Option(value); found {
				out[string(step.Field)] = opt.Label
			} else {
				out[string(step.Field)] = value
			}
		default:
			out[string(step.Field)] = value
		}
	}
	return out
}

// selections normalises a checkbox answer to a list. A scalar counts as a single selection.
func selections(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []domain.OptionID:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	}
	return []any{value}
}
