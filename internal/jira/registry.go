package jira

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// API selects the REST root a tool is served from.
type API int

const (
	// APIPlatform is /rest/api/{version}.
	APIPlatform API = iota
	// APIAgile is /rest/agile/1.0 (boards and sprints).
	APIAgile
)

// ParamType is the JSON type a tool argument must have.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array" // array of strings
)

// Location says where a validated argument ends up in the HTTP request.
type Location string

const (
	InPath      Location = "path"
	InQuery     Location = "query"
	InBody      Location = "body"
	InMultipart Location = "multipart"
)

// Param describes one argument of a tool.
type Param struct {
	Name        string
	Type        ParamType
	In          Location
	Description string
	Required    bool
	Default     any

	// Target is the wire name: a dotted JSON path for body params
	// (e.g. "fields.project.key") or the query key. Empty means Name.
	Target string
	// Rich marks plain text that is sent as an ADF document on API v3.
	Rich bool
	// Base64 marks string content that must decode as standard base64.
	Base64 bool

	Pattern string
	Minimum *int
	Maximum *int
}

// ToolSpec maps one tool name to one JIRA REST operation. Immutable after registration.
type ToolSpec struct {
	Name        string
	Description string
	Method      string
	API         API
	Path        string
	Params      []Param
	Shape       Shape
	// Cacheable tools return reference data that may be served from the response cache.
	Cacheable bool
}

// Param returns the named param.
func (s ToolSpec) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// RequiredParams returns the names of all required params.
func (s ToolSpec) RequiredParams() []string {
	var out []string
	for _, p := range s.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	sort.Strings(out)
	return out
}

// OptionalParams returns optional param names mapped to their defaults (nil when none).
func (s ToolSpec) OptionalParams() map[string]any {
	out := map[string]any{}
	for _, p := range s.Params {
		if !p.Required {
			out[p.Name] = p.Default
		}
	}
	return out
}

// Idempotent reports whether the spec's method may be repeated without side effects.
func (s ToolSpec) Idempotent() bool {
	return isIdempotent(s.Method)
}

// Registry is the static tool-name -> ToolSpec mapping.
type Registry struct {
	specs map[string]ToolSpec
	names []string
}

// NewRegistry builds a registry, rejecting duplicate or malformed specs.
func NewRegistry(specs ...ToolSpec) (*Registry, error) {
	r := &Registry{specs: make(map[string]ToolSpec, len(specs))}
	for _, s := range specs {
		if err := validateSpec(s); err != nil {
			return nil, err
		}
		if _, dup := r.specs[s.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", s.Name)
		}
		r.specs[s.Name] = s
		r.names = append(r.names, s.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// MustNewRegistry is NewRegistry for the built-in tool set.
func MustNewRegistry(specs ...ToolSpec) *Registry {
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the spec for name or an UnknownTool error.
func (r *Registry) Resolve(name string) (ToolSpec, error) {
	if s, ok := r.specs[name]; ok {
		return s, nil
	}
	msg := fmt.Sprintf("unknown tool %q", name)
	if hints := r.suggest(name); len(hints) > 0 {
		msg += "; did you mean: " + strings.Join(hints, ", ")
	}
	return ToolSpec{}, &ToolError{Kind: KindUnknownTool, Message: msg}
}

// List returns all specs sorted by name.
func (r *Registry) List() []ToolSpec {
	out := make([]ToolSpec, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.specs[n])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.names) }

func (r *Registry) suggest(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	ranks := fuzzy.RankFindNormalizedFold(name, r.names)
	if len(ranks) == 0 {
		// Fall back to matching individual words ("issue" in "issues_create").
		for _, word := range strings.FieldsFunc(name, func(c rune) bool { return c == '_' || c == '-' || c == ' ' }) {
			if len(word) < 3 {
				continue
			}
			ranks = append(ranks, fuzzy.RankFindNormalizedFold(word, r.names)...)
		}
	}
	sort.Sort(ranks)
	seen := map[string]bool{}
	var out []string
	for _, rk := range ranks {
		if seen[rk.Target] {
			continue
		}
		seen[rk.Target] = true
		out = append(out, rk.Target)
		if len(out) == 3 {
			break
		}
	}
	return out
}

var placeholderRE = regexp.MustCompile(`\{([^{}]*)\}`)

var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
}

func validateSpec(s ToolSpec) error {
	if s.Name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if !allowedMethods[s.Method] {
		return fmt.Errorf("tool %q has unsupported method %q", s.Name, s.Method)
	}
	if !strings.HasPrefix(s.Path, "/") || strings.Contains(s.Path, "..") {
		return fmt.Errorf("tool %q has invalid path %q", s.Name, s.Path)
	}
	seen := map[string]bool{}
	for _, p := range s.Params {
		if seen[p.Name] {
			return fmt.Errorf("tool %q declares param %q twice", s.Name, p.Name)
		}
		seen[p.Name] = true
		placeholder := "{" + p.Name + "}"
		if p.In == InPath {
			if !p.Required {
				return fmt.Errorf("tool %q: path param %q must be required", s.Name, p.Name)
			}
			if !strings.Contains(s.Path, placeholder) {
				return fmt.Errorf("tool %q: path param %q has no placeholder", s.Name, p.Name)
			}
		}
		if (p.In == InBody || p.In == InMultipart) && isIdempotent(s.Method) {
			return fmt.Errorf("tool %q: %s has no request body", s.Name, s.Method)
		}
	}
	// Every placeholder must be filled by a path param, or it would be sent literally.
	for _, m := range placeholderRE.FindAllStringSubmatch(s.Path, -1) {
		if p, ok := s.Param(m[1]); !ok || p.In != InPath {
			return fmt.Errorf("tool %q: placeholder %q has no path param", s.Name, m[0])
		}
	}
	return nil
}
