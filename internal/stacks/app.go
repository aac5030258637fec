// Package stacks builds the workshop's CloudFormation stacks and tracks the
// ordering between them.
package stacks

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"tasnim.dev/workshop-infra/internal/cfn"
)

var (
	ErrDuplicateStack = errors.New("duplicate stack")
	ErrStackCycle     = errors.New("stack dependency cycle")
	ErrUnknownStack   = errors.New("unknown stack")
)

// Stack is one independently applied template.
type Stack struct {
	Name     string
	Template *cfn.Template

	dependsOn []string
}

// DependsOn returns the names of stacks that must be applied first.
func (s *Stack) DependsOn() []string {
	return append([]string(nil), s.dependsOn...)
}

// App is the set of stacks synthesized together.
type App struct {
	stacks []*Stack
	byName map[string]*Stack
}

func NewApp() *App {
	return &App{byName: make(map[string]*Stack)}
}

// NewStack registers an empty stack.
func (a *App) NewStack(name, description string) (*Stack, error) {
	if _, exists := a.byName[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateStack, name)
	}
	s := &Stack{Name: name, Template: cfn.NewTemplate(description)}
	a.stacks = append(a.stacks, s)
	a.byName[name] = s
	return s, nil
}

func (a *App) Stack(name string) (*Stack, bool) {
	s, ok := a.byName[name]
	return s, ok
}

// AddDependency makes dependent apply after dependency.
func (a *App) AddDependency(dependent, dependency *Stack) error {
	if dependent == nil || dependency == nil {
		return fmt.Errorf("%w: nil stack", ErrUnknownStack)
	}
	if a.byName[dependent.Name] != dependent {
		return fmt.Errorf("%w: %s", ErrUnknownStack, dependent.Name)
	}
	if a.byName[dependency.Name] != dependency {
		return fmt.Errorf("%w: %s", ErrUnknownStack, dependency.Name)
	}
	for _, d := range dependent.dependsOn {
		if d == dependency.Name {
			return nil
		}
	}
	dependent.dependsOn = append(dependent.dependsOn, dependency.Name)
	return nil
}

// SynthesizedStack is a validated stack ready to be handed to CloudFormation.
type SynthesizedStack struct {
	Name      string
	Template  *cfn.Template
	DependsOn []string
}

// Synth validates every template and returns stacks dependencies-first.
func (a *App) Synth() ([]SynthesizedStack, error) {
	for _, s := range a.stacks {
		if err := s.Template.Validate(); err != nil {
			return nil, fmt.Errorf("stack %s: %w", s.Name, err)
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(a.stacks))
	var out []SynthesizedStack

	var visit func(s *Stack) error
	visit = func(s *Stack) error {
		switch state[s.Name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w at %s", ErrStackCycle, s.Name)
		}
		state[s.Name] = visiting
		for _, dep := range s.dependsOn {
			if err := visit(a.byName[dep]); err != nil {
				return err
			}
		}
		state[s.Name] = done
		out = append(out, SynthesizedStack{Name: s.Name, Template: s.Template, DependsOn: s.DependsOn()})
		return nil
	}

	for _, s := range a.stacks {
		if err := visit(s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Environment is the account and region a synthesized stack targets.
type Environment struct {
	Account string
	Region  string
}

func (e Environment) String() string {
	account := e.Account
	if account == "" {
		account = "unknown-account"
	}
	return fmt.Sprintf("aws://%s/%s", account, e.Region)
}

type manifestArtifact struct {
	Type         string   `json:"type"`
	Environment  string   `json:"environment"`
	TemplateFile string   `json:"templateFile"`
	Dependencies []string `json:"dependencies"`
}

type manifest struct {
	Version   string                      `json:"version"`
	Order     []string                    `json:"order"`
	Artifacts map[string]manifestArtifact `json:"artifacts"`
}

// TemplateFileName is the file a stack's template is written to.
func TemplateFileName(stackName string) string {
	return stackName + ".template.json"
}

// WriteAssembly writes every template plus a manifest.json into dir.
func WriteAssembly(dir string, env Environment, synthesized []SynthesizedStack) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	m := manifest{Version: "1", Artifacts: make(map[string]manifestArtifact, len(synthesized))}
	for _, s := range synthesized {
		body, err := s.Template.JSON()
		if err != nil {
			return fmt.Errorf("stack %s: %w", s.Name, err)
		}
		file := TemplateFileName(s.Name)
		if err := os.WriteFile(filepath.Join(dir, file), body, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", file, err)
		}

		deps := append([]string{}, s.DependsOn...)
		sort.Strings(deps)
		m.Order = append(m.Order, s.Name)
		m.Artifacts[s.Name] = manifestArtifact{
			Type:         "aws:cloudformation:stack",
			Environment:  env.String(),
			TemplateFile: file,
			Dependencies: deps,
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "manifest.json"), append(data, '\n'), 0o644)
}
