package jira

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var schemaCache sync.Map // name:sha256(schema) -> *jsonschema.Schema

// ArgumentSchema renders the type, pattern and bounds constraints of a spec's params
// as a JSON Schema object. Presence checks are done by the builder, not the schema.
func ArgumentSchema(spec ToolSpec) map[string]any {
	props := map[string]any{}
	for _, p := range spec.Params {
		prop := map[string]any{"type": string(p.Type)}
		switch p.Type {
		case TypeArray:
			items := map[string]any{"type": "string"}
			if p.Pattern != "" {
				items["pattern"] = p.Pattern
			}
			prop["items"] = items
			if p.Required {
				prop["minItems"] = 1
			}
			if p.Maximum != nil {
				prop["maxItems"] = *p.Maximum
			}
		case TypeString:
			if p.Pattern != "" {
				prop["pattern"] = p.Pattern
			}
			if p.Required {
				prop["minLength"] = 1
			}
		case TypeInteger:
			if p.Minimum != nil {
				prop["minimum"] = *p.Minimum
			}
			if p.Maximum != nil {
				prop["maximum"] = *p.Maximum
			}
		}
		props[p.Name] = prop
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

func compiledSchema(spec ToolSpec) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(ArgumentSchema(spec))
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	key := spec.Name + ":" + hex.EncodeToString(sum[:])
	if v, ok := schemaCache.Load(key); ok {
		return v.(*jsonschema.Schema), nil
	}
	s, err := jsonschema.CompileString(spec.Name+".json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid argument schema for %s: %w", spec.Name, err)
	}
	schemaCache.Store(key, s)
	return s, nil
}

func firstLeafValidationError(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	if err == nil {
		return nil
	}
	if len(err.Causes) == 0 {
		return err
	}
	for _, c := range err.Causes {
		if leaf := firstLeafValidationError(c); leaf != nil {
			return leaf
		}
	}
	return err
}

// validateArguments checks args (already normalized to JSON types) against the spec's
// schema and reports the first offending field as InvalidParameter.
func validateArguments(spec ToolSpec, args map[string]any) error {
	s, err := compiledSchema(spec)
	if err != nil {
		return err
	}
	if err := s.Validate(args); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return &ValidationError{Kind: KindInvalidParameter, Message: err.Error()}
		}
		leaf := firstLeafValidationError(ve)
		field := strings.TrimPrefix(leaf.InstanceLocation, "/")
		if i := strings.Index(field, "/"); i >= 0 {
			field = field[:i]
		}
		msg := leaf.Message
		if msg == "" {
			msg = leaf.Error()
		}
		return &ValidationError{Kind: KindInvalidParameter, Field: field, Message: msg}
	}
	return nil
}
