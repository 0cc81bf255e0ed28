package formschema

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

type FieldType string

const (
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypeURL      FieldType = "url"
	TypeTextarea FieldType = "textarea"
	TypeSelect   FieldType = "select"
	TypeCheckbox FieldType = "checkbox"
	TypeFile     FieldType = "file"
	TypeNumber   FieldType = "number"
	TypeDate     FieldType = "date"
	TypeTel      FieldType = "tel"
)

// Field is one entry of a form schema. The concrete type carries the
// per-type data: only SelectField has options.
type Field interface {
	Attrs() Base
	Type() FieldType
	isField()
}

// Base holds the properties every field shares.
type Base struct {
	Name     string
	Label    string
	Required bool
}

// InputField covers every field type that takes a single free value.
type InputField struct {
	Base
	Kind FieldType
}

type SelectField struct {
	Base
	Options []string
}

func (f InputField) Attrs() Base     { return f.Base }
func (f InputField) Type() FieldType { return f.Kind }
func (InputField) isField()          {}

func (f SelectField) Attrs() Base   { return f.Base }
func (SelectField) Type() FieldType { return TypeSelect }
func (SelectField) isField()        {}

// Schema is an ordered field list; order is presentation order.
type Schema []Field

// NewField builds the right variant for a type name. Options are dropped for
// anything that is not a select.
func NewField(base Base, kind FieldType, options []string) Field {
	if kind == "" {
		kind = TypeText
	}
	if kind == TypeSelect {
		return SelectField{Base: base, Options: options}
	}
	return InputField{Base: base, Kind: kind}
}

type wireField struct {
	Label    string   `json:"label"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

func (s Schema) MarshalJSON() ([]byte, error) {
	out := make([]wireField, 0, len(s))
	for _, f := range s {
		a := f.Attrs()
		w := wireField{Label: a.Label, Name: a.Name, Type: string(f.Type()), Required: a.Required}
		if sel, ok := f.(SelectField); ok {
			w.Options = sel.Options
		}
		out = append(out, w)
	}
	return json.Marshal(out)
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw []wireField
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Schema, 0, len(raw))
	for _, w := range raw {
		f, ok := normalize(w.Label, w.Name, w.Type, w.Required, w.Options)
		if ok {
			out = append(out, f)
		}
	}
	*s = out
	return nil
}

var safeName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// normalize applies the naming rules shared by the JSON and line formats.
// It reports false when neither a label nor a usable name is present.
func normalize(label, name, kind string, required bool, options []string) (Field, bool) {
	label = strings.TrimSpace(label)
	name = strings.TrimSpace(name)
	kind = strings.ToLower(strings.TrimSpace(kind))

	if name == "" {
		name = deriveName(label)
	} else if !safeName.MatchString(name) {
		name = deriveName(name)
	}
	if name == "" {
		return nil, false
	}
	if label == "" {
		label = name
	}

	var opts []string
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, o)
		}
	}

	return NewField(Base{Name: name, Label: label, Required: required}, FieldType(kind), opts), true
}

func deriveName(label string) string {
	return strings.ReplaceAll(slug.Make(label), "-", "_")
}
