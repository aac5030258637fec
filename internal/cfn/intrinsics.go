package cfn

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Ref refers to a resource's primary identifier or to a pseudo parameter
// such as AWS::Region.
type Ref string

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Ref": string(r)})
}

// GetAtt reads an attribute of another resource.
type GetAtt struct {
	LogicalID string
	Attribute string
}

func (g GetAtt) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{"Fn::GetAtt": {g.LogicalID, g.Attribute}})
}

// Sub substitutes ${Name} and ${Name.Attr} placeholders.
type Sub string

func (s Sub) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Fn::Sub": string(s)})
}

// Select picks one element of List.
type Select struct {
	Index int
	List  any
}

func (s Select) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]any{"Fn::Select": {s.Index, s.List}})
}

// GetAZs lists the availability zones of Region, or of the stack's region
// when Region is empty.
type GetAZs struct {
	Region string
}

func (g GetAZs) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Fn::GetAZs": g.Region})
}

// Join concatenates Values with Delimiter.
type Join struct {
	Delimiter string
	Values    []any
}

func (j Join) MarshalJSON() ([]byte, error) {
	values := j.Values
	if values == nil {
		values = []any{}
	}
	return json.Marshal(map[string][]any{"Fn::Join": {j.Delimiter, values}})
}

// Tag builds a CloudFormation tag entry.
func Tag(key string, value any) map[string]any {
	return map[string]any{"Key": key, "Value": value}
}

var subPlaceholder = regexp.MustCompile(`\$\{([^}!][^}]*)\}`)

// references collects the logical IDs a value points at. Pseudo parameters
// (AWS::*) are not resources and are skipped.
func references(v any, out map[string]struct{}) {
	add := func(id string) {
		if id == "" || strings.HasPrefix(id, "AWS::") {
			return
		}
		out[id] = struct{}{}
	}

	switch val := v.(type) {
	case Ref:
		add(string(val))
	case GetAtt:
		add(val.LogicalID)
	case Sub:
		for _, m := range subPlaceholder.FindAllStringSubmatch(string(val), -1) {
			id, _, _ := strings.Cut(m[1], ".")
			add(id)
		}
	case Select:
		references(val.List, out)
	case Join:
		for _, item := range val.Values {
			references(item, out)
		}
	case map[string]any:
		for _, item := range val {
			references(item, out)
		}
	case []any:
		for _, item := range val {
			references(item, out)
		}
	case []map[string]any:
		for _, item := range val {
			references(item, out)
		}
	}
}
