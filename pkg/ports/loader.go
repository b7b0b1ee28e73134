package ports

import "github.com/aretw0/carepath/pkg/domain"

// GraphLoader defines how the engine retrieves its wizard definition.
// This allows the source (built-in, YAML file, ...) to be decoupled.
type GraphLoader interface {
	LoadGraph() (*domain.Graph, error)
}
