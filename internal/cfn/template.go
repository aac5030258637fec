// Package cfn models CloudFormation templates as a graph of resources whose
// references are recorded at construction time, so the graph can be checked
// for dangling references and ordered before it is handed to CloudFormation.
package cfn

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"
)

const formatVersion = "2010-09-09"

var (
	ErrDanglingReference = errors.New("dangling reference")
	ErrCycle             = errors.New("dependency cycle")
	ErrDuplicateID       = errors.New("duplicate logical ID")
)

// Resource is one entry of the Resources section.
type Resource struct {
	Type           string
	Properties     map[string]any
	DependsOn      []string
	DeletionPolicy string
}

// Output is one entry of the Outputs section.
type Output struct {
	Value       any
	Description string
	ExportName  string
}

// Template is a CloudFormation template under construction.
type Template struct {
	Description string
	Metadata    map[string]any

	resources   map[string]*Resource
	order       []string
	outputs     map[string]Output
	outputOrder []string
	errs        []error
}

func NewTemplate(description string) *Template {
	return &Template{
		Description: description,
		resources:   make(map[string]*Resource),
		outputs:     make(map[string]Output),
	}
}

// Add declares a resource. A duplicate logical ID is reported by Validate.
func (t *Template) Add(logicalID, resourceType string, props map[string]any) *Resource {
	r := &Resource{Type: resourceType, Properties: props}
	if _, exists := t.resources[logicalID]; exists {
		t.errs = append(t.errs, fmt.Errorf("%w: %s", ErrDuplicateID, logicalID))
		return r
	}
	t.resources[logicalID] = r
	t.order = append(t.order, logicalID)
	return r
}

// AddOutput declares an output. Later declarations of the same name replace
// earlier ones.
func (t *Template) AddOutput(name string, out Output) {
	if _, exists := t.outputs[name]; !exists {
		t.outputOrder = append(t.outputOrder, name)
	}
	t.outputs[name] = out
}

func (t *Template) Resource(logicalID string) (*Resource, bool) {
	r, ok := t.resources[logicalID]
	return r, ok
}

// LogicalIDs returns resource IDs in declaration order.
func (t *Template) LogicalIDs() []string {
	return append([]string(nil), t.order...)
}

// ResourcesOfType returns the logical IDs of all resources of the given type
// in declaration order.
func (t *Template) ResourcesOfType(resourceType string) []string {
	var ids []string
	for _, id := range t.order {
		if t.resources[id].Type == resourceType {
			ids = append(ids, id)
		}
	}
	return ids
}

func (t *Template) Output(name string) (Output, bool) {
	o, ok := t.outputs[name]
	return o, ok
}

// OutputNames returns output names in declaration order.
func (t *Template) OutputNames() []string {
	return append([]string(nil), t.outputOrder...)
}

// Dependencies returns the sorted logical IDs a resource depends on, through
// property references or DependsOn.
func (t *Template) Dependencies(logicalID string) []string {
	r, ok := t.resources[logicalID]
	if !ok {
		return nil
	}
	refs := make(map[string]struct{})
	references(r.Properties, refs)
	for _, d := range r.DependsOn {
		refs[d] = struct{}{}
	}
	delete(refs, logicalID)

	deps := make([]string, 0, len(refs))
	for id := range refs {
		deps = append(deps, id)
	}
	sort.Strings(deps)
	return deps
}

// Validate reports duplicate IDs, references to undeclared resources (from
// resources and outputs) and dependency cycles.
func (t *Template) Validate() error {
	errs := append([]error(nil), t.errs...)

	for _, id := range t.order {
		for _, dep := range t.Dependencies(id) {
			if _, ok := t.resources[dep]; !ok {
				errs = append(errs, fmt.Errorf("%w: %s -> %s", ErrDanglingReference, id, dep))
			}
		}
	}
	for _, name := range t.outputOrder {
		refs := make(map[string]struct{})
		references(t.outputs[name].Value, refs)
		for dep := range refs {
			if _, ok := t.resources[dep]; !ok {
				errs = append(errs, fmt.Errorf("%w: output %s -> %s", ErrDanglingReference, name, dep))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if _, err := t.Order(); err != nil {
		return err
	}
	return nil
}

// Order returns logical IDs so that every resource follows its dependencies.
// Ties keep declaration order.
func (t *Template) Order() ([]string, error) {
	indegree := make(map[string]int, len(t.order))
	dependents := make(map[string][]string, len(t.order))
	for _, id := range t.order {
		for _, dep := range t.Dependencies(id) {
			if _, ok := t.resources[dep]; !ok {
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	position := make(map[string]int, len(t.order))
	for i, id := range t.order {
		position[id] = i
	}

	var ready []string
	for _, id := range t.order {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	sorted := make([]string, 0, len(t.order))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return position[ready[i]] < position[ready[j]] })
		id := ready[0]
		ready = ready[1:]
		sorted = append(sorted, id)
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(sorted) != len(t.order) {
		var stuck []string
		for _, id := range t.order {
			if indegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return nil, fmt.Errorf("%w among %s", ErrCycle, strings.Join(stuck, ", "))
	}
	return sorted, nil
}

type resourceDoc struct {
	Type           string         `json:"Type"`
	Properties     map[string]any `json:"Properties,omitempty"`
	DependsOn      []string       `json:"DependsOn,omitempty"`
	DeletionPolicy string         `json:"DeletionPolicy,omitempty"`
}

type exportDoc struct {
	Name string `json:"Name"`
}

type outputDoc struct {
	Description string     `json:"Description,omitempty"`
	Value       any        `json:"Value"`
	Export      *exportDoc `json:"Export,omitempty"`
}

type document struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty"`
	Metadata                 map[string]any         `json:"Metadata,omitempty"`
	Resources                map[string]resourceDoc `json:"Resources"`
	Outputs                  map[string]outputDoc   `json:"Outputs,omitempty"`
}

func (t *Template) MarshalJSON() ([]byte, error) {
	doc := document{
		AWSTemplateFormatVersion: formatVersion,
		Description:              t.Description,
		Metadata:                 t.Metadata,
		Resources:                make(map[string]resourceDoc, len(t.resources)),
	}
	for id, r := range t.resources {
		doc.Resources[id] = resourceDoc{
			Type:           r.Type,
			Properties:     r.Properties,
			DependsOn:      r.DependsOn,
			DeletionPolicy: r.DeletionPolicy,
		}
	}
	if len(t.outputs) > 0 {
		doc.Outputs = make(map[string]outputDoc, len(t.outputs))
		for name, o := range t.outputs {
			od := outputDoc{Description: o.Description, Value: o.Value}
			if o.ExportName != "" {
				od.Export = &exportDoc{Name: o.ExportName}
			}
			doc.Outputs[name] = od
		}
	}
	return json.Marshal(doc)
}

// JSON renders the template as indented JSON.
func (t *Template) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal template: %w", err)
	}
	return append(out, '\n'), nil
}

// YAML renders the template as YAML.
func (t *Template) YAML() ([]byte, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal template: %w", err)
	}
	out, err := yaml.JSONToYAML(raw)
	if err != nil {
		return nil, fmt.Errorf("convert template to YAML: %w", err)
	}
	return out, nil
}
