package formschema

import (
	"encoding/json"
	"strings"
)

// ParseSchema reads a stored schema. JSON arrays are decoded; anything else is
// treated as builder lines. Malformed input yields an empty schema.
func ParseSchema(raw string) Schema {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Schema{}
	}
	if strings.HasPrefix(trimmed, "[") {
		var s Schema
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return Schema{}
		}
		return s
	}
	if strings.HasPrefix(trimmed, "{") {
		return Schema{}
	}
	return parseLines(trimmed)
}

// BuildSchemaFromLines converts "label|name|type|required" lines into the
// serialized schema stored on a service.
func BuildSchemaFromLines(lines string) string {
	data, err := json.Marshal(parseLines(lines))
	if err != nil {
		return "[]"
	}
	return string(data)
}

func parseLines(lines string) Schema {
	out := Schema{}
	for _, line := range strings.Split(strings.ReplaceAll(lines, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "|")
		for len(parts) < 4 {
			parts = append(parts, "")
		}
		required := strings.EqualFold(strings.TrimSpace(parts[3]), "required")
		if f, ok := normalize(parts[0], parts[1], parts[2], required, nil); ok {
			out = append(out, f)
		}
	}
	return out
}

// ValidationResult lists errors keyed by field name.
type ValidationResult struct {
	OK     bool              `json:"ok"`
	Errors map[string]string `json:"errors,omitempty"`
}

// ValidateResponse checks that every required field has a non-blank value.
// Keys that are not part of the schema are ignored. With duplicate names the
// last definition wins.
func ValidateResponse(schema Schema, responses map[string]string) ValidationResult {
	byName := make(map[string]Field, len(schema))
	order := make([]string, 0, len(schema))
	for _, f := range schema {
		name := f.Attrs().Name
		if _, seen := byName[name]; !seen {
			order = append(order, name)
		}
		byName[name] = f
	}

	errs := map[string]string{}
	for _, name := range order {
		a := byName[name].Attrs()
		if !a.Required {
			continue
		}
		if strings.TrimSpace(responses[name]) == "" {
			errs[name] = a.Label + " is required"
		}
	}

	if len(errs) == 0 {
		return ValidationResult{OK: true}
	}
	return ValidationResult{OK: false, Errors: errs}
}

// FieldInputRequest describes one input for a presentation layer.
type FieldInputRequest struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

func RenderFieldRequests(schema Schema) []FieldInputRequest {
	out := make([]FieldInputRequest, 0, len(schema))
	for _, f := range schema {
		a := f.Attrs()
		req := FieldInputRequest{
			Name:     a.Name,
			Label:    a.Label,
			Type:     string(f.Type()),
			Required: a.Required,
		}
		if sel, ok := f.(SelectField); ok {
			req.Options = append([]string(nil), sel.Options...)
		}
		out = append(out, req)
	}
	return out
}
