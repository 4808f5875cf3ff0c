package intake

import (
	"encoding/json"
	"fmt"
)

type RowInput struct {
	Payload       Payload
	PatientNumber string
	// Attachments maps field keys to the url of the materialized attachment
	Attachments map[string]string
}

// MapRow returns one cell value for every header, aligned by position
func MapRow(headers []string, input RowInput) []interface{} {
	row := make([]interface{}, len(headers))
	for i, header := range headers {
		row[i] = cellValue(header, input)
	}
	return row
}

// MapLabelledRow returns the row for a sheet whose header row contains the
// schema labels. Cells follow the schema order.
func MapLabelledRow(schema Schema, input RowInput) []interface{} {
	return MapRow(schema.Keys(), input)
}

func cellValue(key string, input RowInput) interface{} {
	if key == PatientNumberKey {
		return input.PatientNumber
	}
	if url, ok := input.Attachments[key]; ok {
		return url
	}
	return scalar(Lookup(input.Payload, key))
}

func scalar(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return ""
	case string, bool, json.Number, float64, float32, int, int64, int32:
		return v
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}
