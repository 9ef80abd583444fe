// Package agents holds the agent definitions handed to the external LLM
// runtime: who the agents are, which model they run, and which tools they
// may call.
package agents

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-yaml"
	jsoniter "github.com/json-iterator/go"

	"library-assistant/tools"
)

//go:embed default.yaml
var defaultDefinitions []byte

// Definition describes one agent.
type Definition struct {
	Name        string   `yaml:"name" json:"name"`
	DisplayName string   `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Model       string   `yaml:"model" json:"model"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Instruction string   `yaml:"instruction" json:"instruction"`
	Tools       []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	SubAgents   []string `yaml:"sub_agents,omitempty" json:"sub_agents,omitempty"`
}

// Set is a group of agents with one entry point.
type Set struct {
	Root   string       `yaml:"root" json:"root"`
	Agents []Definition `yaml:"agents" json:"agents"`
}

// ToolLookup tells whether a tool exists. *tools.Registry implements it.
type ToolLookup interface {
	Contains(name string) bool
}

// Default returns the built-in agent set.
func Default() (*Set, error) {
	return Parse(defaultDefinitions)
}

// Load reads an agent set from a YAML file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agents: %w", err)
	}
	return Parse(data)
}

// Parse decodes an agent set from YAML.
func Parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse agents: %w", err)
	}
	return &s, nil
}

// Get returns the named agent.
func (s *Set) Get(name string) (*Definition, bool) {
	for i := range s.Agents {
		if s.Agents[i].Name == name {
			return &s.Agents[i], true
		}
	}
	return nil, false
}

// Validate checks the set against the available tools:
//   - names are non-empty and unique
//   - every agent has a model and an instruction
//   - every tool is registered
//   - every sub-agent is defined and delegation has no cycles
//   - the root agent is defined
func (s *Set) Validate(lookup ToolLookup) error {
	var errs []error
	seen := make(map[string]bool, len(s.Agents))
	for i, a := range s.Agents {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("agent #%d: name is required", i))
			continue
		}
		if seen[a.Name] {
			errs = append(errs, fmt.Errorf("agent %s: defined more than once", a.Name))
		}
		seen[a.Name] = true
		if a.Model == "" {
			errs = append(errs, fmt.Errorf("agent %s: model is required", a.Name))
		}
		if a.Instruction == "" {
			errs = append(errs, fmt.Errorf("agent %s: instruction is required", a.Name))
		}
		for _, t := range a.Tools {
			if lookup == nil || !lookup.Contains(t) {
				errs = append(errs, fmt.Errorf("agent %s: unknown tool %q", a.Name, t))
			}
		}
	}
	for _, a := range s.Agents {
		for _, sub := range a.SubAgents {
			if !seen[sub] {
				errs = append(errs, fmt.Errorf("agent %s: unknown sub-agent %q", a.Name, sub))
			}
		}
	}
	if s.Root == "" {
		errs = append(errs, errors.New("root agent is required"))
	} else if !seen[s.Root] {
		errs = append(errs, fmt.Errorf("root agent %q is not defined", s.Root))
	}
	if cycle := s.findCycle(); cycle != nil {
		errs = append(errs, fmt.Errorf("delegation cycle: %v", cycle))
	}
	return errors.Join(errs...)
}

// findCycle returns the agents of one delegation cycle, or nil.
func (s *Set) findCycle() []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(s.Agents))
	var path []string

	var visit func(name string) []string
	visit = func(name string) []string {
		switch state[name] {
		case visiting:
			start := slices.Index(path, name)
			return append(slices.Clone(path[start:]), name)
		case done:
			return nil
		}
		a, ok := s.Get(name)
		if !ok {
			return nil
		}
		state[name] = visiting
		path = append(path, name)
		for _, sub := range a.SubAgents {
			if c := visit(sub); c != nil {
				return c
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		return nil
	}

	for _, a := range s.Agents {
		if c := visit(a.Name); c != nil {
			return c
		}
	}
	return nil
}

// exportedAgent is a definition with its tools resolved to declarations.
type exportedAgent struct {
	Definition
	Tools []tools.Declaration `json:"tools,omitempty"`
}

// Export renders the set as JSON for the agent runtime, with each agent's
// tool declarations inlined. The set must validate against reg.
func (s *Set) Export(reg *tools.Registry) ([]byte, error) {
	if err := s.Validate(reg); err != nil {
		return nil, err
	}
	out := struct {
		Root   string          `json:"root"`
		Agents []exportedAgent `json:"agents"`
	}{Root: s.Root}
	for _, a := range s.Agents {
		ea := exportedAgent{Definition: a}
		for _, name := range a.Tools {
			t, _ := reg.Get(name)
			ea.Tools = append(ea.Tools, t.Declaration())
		}
		out.Agents = append(out.Agents, ea)
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(out, "", "  ")
}
