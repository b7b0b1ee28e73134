package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/carepath/pkg/domain"
)

// mainViewNode stands for both the entry source and the "null" target.
const mainViewNode = "main_view"

// Overlay marks a flow's position on the graph.
type Overlay struct {
	// Reached are the positions 1..MaxReachedStep.
	MaxReachedStep int
	// Current is the active position; MainView highlights the main view node.
	Current int
}

// OverlayFor builds the overlay of a flow state.
func OverlayFor(state *domain.FlowState) *Overlay {
	if state == nil {
		return nil
	}
	return &Overlay{MaxReachedStep: state.MaxReachedStep, Current: state.StepIndex}
}

// GenerateMermaid produces a Mermaid flowchart of a wizard graph.
// It applies semantic styling:
// - Main view: ((Circle))
// - Component: [[Subroutine]]
// - Radio, checkbox, text: [/Parallelogram/]
// Conditional routes are dotted and labelled with the answer that selects them.
func GenerateMermaid(g *domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    %s((\"main view\"))\n", mainViewNode))

	for i := range g.Steps {
		step := &g.Steps[i]
		opener, closer := "[/", "/]"
		if step.Type == domain.StepComponent {
			opener, closer = "[[", "]]"
		}
		label := escape(step.ID)
		if pct, ok := g.Progress[step.ID]; ok {
			label = fmt.Sprintf("%s <br/> %d%%", label, pct)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(step.ID), opener, label, closer))
	}

	sources := make([]string, 0, len(g.Navigation))
	for source := range g.Navigation {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		edges := g.Navigation[source]
		for _, name := range sortedKeys(edges) {
			arrow := "-->"
			if name != domain.DefaultTransition {
				arrow = fmt.Sprintf("-- \"%s\" -->", escape(name))
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", nodeID(source), arrow, nodeID(edges[name])))
		}
	}

	for i := range g.Steps {
		step := &g.Steps[i]
		if step.ConditionalNavigation == nil {
			continue
		}
		routes := step.ConditionalNavigation.Routes
		for _, value := range sortedKeys(routes) {
			sb.WriteString(fmt.Sprintf("    %s -. \"%s = %s\" .-> %s\n",
				sanitizeMermaidID(step.ID), escape(string(step.Field)), escape(value), nodeID(routes[value])))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		for pos := 1; pos <= overlay.MaxReachedStep && pos <= g.Len(); pos++ {
			if pos == overlay.Current {
				continue
			}
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", nodeID(g.StepID(pos))))
		}
		sb.WriteString(fmt.Sprintf("    class %s current;\n", nodeID(g.StepID(overlay.Current))))
	}

	return sb.String()
}

func nodeID(id string) string {
	if id == domain.EntryStepID || id == domain.MainViewID || id == "" {
		return mainViewNode
	}
	return sanitizeMermaidID(id)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
