package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// References returns every property reference found in the step arguments,
// sorted.
func (s *Step) References() ([]string, error) {
	raw, err := json.Marshal(s.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments of step %s: %w", s.Name, err)
	}

	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode arguments of step %s: %w", s.Name, err)
	}

	var refs []string

	var walk func(node any)
	walk = func(node any) {
		switch n := node.(type) {
		case map[string]any:
			if get, ok := n["Get"].(string); ok && len(n) == 1 {
				refs = append(refs, get)

				return
			}

			for _, v := range n {
				walk(v)
			}
		case []any:
			for _, v := range n {
				walk(v)
			}
		}
	}
	walk(tree)

	sort.Strings(refs)

	return refs, nil
}

// Validate checks that step names are unique and that every reference names a
// declared parameter or a step declared earlier. Steps may only depend on
// earlier steps, so a valid definition is acyclic.
func (d *Definition) Validate() error {
	params := map[string]bool{}

	for _, p := range d.Parameters {
		if p.Name == "" {
			return errors.New("pipeline parameter without a name")
		}

		if params[p.Name] {
			return fmt.Errorf("pipeline parameter %s declared twice", p.Name)
		}

		params[p.Name] = true
	}

	earlier := map[string]bool{}

	for i := range d.Steps {
		step := &d.Steps[i]

		if step.Name == "" {
			return fmt.Errorf("step %d has no name", i)
		}

		if earlier[step.Name] {
			return fmt.Errorf("step %s declared twice", step.Name)
		}

		refs, err := step.References()
		if err != nil {
			return err
		}

		for _, ref := range refs {
			kind, rest, _ := strings.Cut(ref, ".")

			switch kind {
			case "Parameters":
				if !params[rest] {
					return fmt.Errorf("step %s references undeclared parameter %s", step.Name, rest)
				}
			case "Steps":
				target, _, _ := strings.Cut(rest, ".")
				if !earlier[target] {
					return fmt.Errorf("step %s references %s which is not an earlier step", step.Name, target)
				}
			default:
				return fmt.Errorf("step %s holds unsupported reference %q", step.Name, ref)
			}
		}

		earlier[step.Name] = true
	}

	return nil
}
