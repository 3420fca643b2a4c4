package api

import (
	"fmt"
	"sort"

	pkgerrors "ipdash/pkg/errors"
)

// Endpoint names understood by the optimizer API.
const (
	EndpointBestIP  = "best_ip"
	EndpointResults = "results"
	EndpointLogs    = "logs"
	EndpointConfig  = "config"
	EndpointRunTest = "run_test"
)

// Endpoints maps a logical resource name to its URL path. It is fixed once
// built; callers only read from it.
type Endpoints struct {
	paths map[string]string
}

// DefaultEndpoints returns the registry for the /api/* routes.
func DefaultEndpoints() Endpoints {
	return NewEndpoints(map[string]string{
		EndpointBestIP:  "/api/best_ip",
		EndpointResults: "/api/results",
		EndpointLogs:    "/api/logs",
		EndpointConfig:  "/api/config",
		EndpointRunTest: "/api/run_test",
	})
}

// NewEndpoints copies paths into a new registry.
func NewEndpoints(paths map[string]string) Endpoints {
	cp := make(map[string]string, len(paths))
	for name, path := range paths {
		cp[name] = path
	}
	return Endpoints{paths: cp}
}

// Path returns the path registered for name.
func (e Endpoints) Path(name string) (string, error) {
	path, ok := e.paths[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", pkgerrors.ErrUnknownEndpoint, name)
	}
	return path, nil
}

// Names returns the registered names in sorted order.
func (e Endpoints) Names() []string {
	names := make([]string, 0, len(e.paths))
	for name := range e.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
