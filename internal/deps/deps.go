// Package deps orders accessory services by their declared dependencies.
package deps

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError is returned when the dependency graph cannot be fully ordered.
// Remaining lists every node still waiting on a dependency, sorted; no
// attempt is made to single out one edge as "the" cycle.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected among: %s", strings.Join(e.Remaining, ", "))
}

// Order returns a startup order for the given dependency graph using Kahn's
// algorithm: each name appears after every name it depends on. Ties among
// simultaneously-ready names break lexicographically so the result is
// deterministic regardless of map iteration order.
func Order(graph map[string][]string) ([]string, error) {
	remaining := make(map[string]map[string]struct{}, len(graph))
	dependents := make(map[string][]string, len(graph))
	for name, edges := range graph {
		set := make(map[string]struct{}, len(edges))
		for _, dep := range edges {
			set[dep] = struct{}{}
			dependents[dep] = append(dependents[dep], name)
		}
		remaining[name] = set
	}

	var ready []string
	for name, set := range remaining {
		if len(set) == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	ordered := make([]string, 0, len(graph))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, name)

		var freed []string
		for _, dependent := range dependents[name] {
			set := remaining[dependent]
			delete(set, name)
			if len(set) == 0 {
				freed = append(freed, dependent)
			}
		}
		if len(freed) > 0 {
			ready = append(ready, freed...)
			sort.Strings(ready)
		}
	}

	if len(ordered) != len(graph) {
		var stuck []string
		for name, set := range remaining {
			if len(set) > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, &CycleError{Remaining: stuck}
	}
	return ordered, nil
}
