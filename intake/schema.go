package intake

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PatientNumberKey is the field populated with the generated patient number
const PatientNumberKey = "patientNumber"

type Field struct {
	Key        string `json:"key" mapstructure:"key"`
	Label      string `json:"label" mapstructure:"label"`
	Attachment bool   `json:"attachment" mapstructure:"attachment"`
	// Upload fields are only materialized from uploaded files. A payload
	// value at the key is written to the sheet as submitted.
	Upload bool `json:"upload" mapstructure:"upload"`
}

// Schema is the ordered list of fields of an intake form. The order defines
// the column order of a freshly provisioned sheet.
type Schema []Field

func DefaultSchema() Schema {
	return Schema{
		{Key: PatientNumberKey, Label: "Patient Number"},
		{Key: "currentDate", Label: "Current Date"},
		{Key: "location", Label: "Location"},
		{Key: "name", Label: "Name"},
		{Key: "id", Label: "ID"},
		{Key: "DOB", Label: "Date of Birth"},
		{Key: "gender", Label: "Gender"},
		{Key: "tobaccoUsage", Label: "Tobacco Usage"},
		{Key: "tobaccoDetails.type", Label: "Tobacco Type"},
		{Key: "tobaccoDetails.frequency", Label: "Tobacco Frequency"},
		{Key: "tobaccoDetails.years", Label: "Tobacco Years"},
		{Key: "oralFindings", Label: "Oral Findings"},
		{Key: "oralFindingsDocument", Label: "Oral Findings Document", Attachment: true},
		{Key: "dxBluResult", Label: "DxBlu Result"},
		{Key: "dxBluResultDocument", Label: "DxBlu Result Document", Attachment: true},
		{Key: "dxBluInterpretation", Label: "DxBlu Interpretation"},
		{Key: "recommendation", Label: "Recommendation"},
		{Key: "biopsyStatus", Label: "Biopsy Status"},
		{Key: "biopsyStatusDocument", Label: "Biopsy Status Document", Attachment: true},
		{Key: "biopsyResult", Label: "Biopsy Result"},
		{Key: "imageUrl", Label: "Image", Attachment: true, Upload: true},
	}
}

func (s Schema) Keys() []string {
	keys := make([]string, len(s))
	for i, f := range s {
		keys[i] = f.Key
	}
	return keys
}

func (s Schema) Labels() []string {
	labels := make([]string, len(s))
	for i, f := range s {
		labels[i] = f.Label
	}
	return labels
}

func (s Schema) Field(key string) (Field, bool) {
	for _, f := range s {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

func (s Schema) AttachmentFields() []Field {
	var fields []Field
	for _, f := range s {
		if f.Attachment {
			fields = append(fields, f)
		}
	}
	return fields
}

func (s Schema) AttachmentKeys() []string {
	var keys []string
	for _, f := range s {
		if f.Attachment {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schema has no fields")
	}
	seen := make(map[string]struct{}, len(s))
	for i, f := range s {
		if strings.TrimSpace(f.Key) == "" {
			return fmt.Errorf("field %d has an empty key", i)
		}
		if _, ok := seen[f.Key]; ok {
			return fmt.Errorf("field %q is defined more than once", f.Key)
		}
		seen[f.Key] = struct{}{}
	}
	if _, ok := seen[PatientNumberKey]; !ok {
		return fmt.Errorf("schema must contain the %q field", PatientNumberKey)
	}
	return nil
}

// DecodeSchema converts a generic list of field definitions (e.g. parsed json)
// to a schema. Labels which are not set are derived from the key.
func DecodeSchema(raw interface{}) (Schema, error) {
	var schema Schema
	if err := mapstructure.Decode(raw, &schema); err != nil {
		return nil, fmt.Errorf("unable to decode schema: %w", err)
	}
	for i := range schema {
		if schema[i].Label == "" {
			schema[i].Label = DeriveLabel(schema[i].Key)
		}
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}

func LoadSchemaFile(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read schema file: %w", err)
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse schema file: %w", err)
	}
	return DecodeSchema(raw)
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// DeriveLabel builds a human-readable label from a field key,
// e.g. "tobaccoDetails.type" becomes "Tobacco Details Type"
func DeriveLabel(key string) string {
	var words []string
	for _, segment := range strings.Split(key, ".") {
		words = append(words, splitCamelCase(segment)...)
	}
	for i, w := range words {
		words[i] = titleCaser.String(w)
	}
	return strings.Join(words, " ")
}

func splitCamelCase(s string) []string {
	var words []string
	var current []rune
	runes := []rune(s)
	for i, r := range runes {
		boundary := unicode.IsUpper(r) && i > 0 &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1])))
		if boundary && len(current) > 0 {
			words = append(words, string(current))
			current = nil
		}
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			if len(current) > 0 {
				words = append(words, string(current))
				current = nil
			}
			continue
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		words = append(words, string(current))
	}
	return words
}
