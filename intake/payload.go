package intake

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/TwiN/deepmerge"
	"github.com/mohae/deepcopy"
	errs "github.com/tidepool-org/intake/errors"
)

const keySeparator = "."

// Payload is the decoded body of an intake submission
type Payload map[string]interface{}

// Lookup resolves a dot separated key against the payload. It returns an
// empty string when a segment is missing, null or not a mapping.
func Lookup(payload Payload, key string) interface{} {
	var current interface{} = map[string]interface{}(payload)
	for _, segment := range strings.Split(key, keySeparator) {
		m, ok := asMap(current)
		if !ok {
			return ""
		}
		value, ok := m[segment]
		if !ok || value == nil {
			return ""
		}
		current = value
	}
	return current
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, m != nil
	case Payload:
		return m, m != nil
	default:
		return nil, false
	}
}

// DecodePayload parses a json object keeping numbers as json.Number
func DecodePayload(r io.Reader) (Payload, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	payload := Payload{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: unable to decode payload: %w", errs.Format, err)
	}
	return payload, nil
}

// Normalize returns a copy of the payload with surrounding whitespace
// removed from every string value
func Normalize(payload Payload) Payload {
	if payload == nil {
		return Payload{}
	}
	normalized, _ := deepcopy.Copy(map[string]interface{}(payload)).(map[string]interface{})
	return trimStrings(normalized).(map[string]interface{})
}

func trimStrings(v interface{}) interface{} {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case map[string]interface{}:
		for k, nested := range value {
			value[k] = trimStrings(nested)
		}
		return value
	case []interface{}:
		for i, nested := range value {
			value[i] = trimStrings(nested)
		}
		return value
	default:
		return v
	}
}

// ExpandForm converts flat form values with dot separated keys to a nested
// payload. Only the first value of repeated keys is used.
func ExpandForm(values map[string][]string) (Payload, error) {
	payload := Payload{}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		segments := strings.Split(key, keySeparator)
		current := map[string]interface{}(payload)
		for _, segment := range segments[:len(segments)-1] {
			next, ok := current[segment]
			if !ok {
				nested := map[string]interface{}{}
				current[segment] = nested
				current = nested
				continue
			}
			nested, ok := next.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: form field %q conflicts with %q", errs.Format, key, segment)
			}
			current = nested
		}
		last := segments[len(segments)-1]
		if _, ok := current[last].(map[string]interface{}); ok {
			return nil, fmt.Errorf("%w: form field %q conflicts with a nested field", errs.Format, key)
		}
		current[last] = vals[0]
	}
	return payload, nil
}

// MergePayloads merges src into dst. Scalar values of src replace the values of dst.
func MergePayloads(dst, src Payload) (Payload, error) {
	if dst == nil {
		dst = Payload{}
	}
	if key, ok := findConflict(dst, src, ""); ok {
		return nil, fmt.Errorf("%w: field %q is defined both as a value and as a nested object", errs.Format, key)
	}
	err := deepmerge.DeepMerge(dst, src, deepmerge.Config{PreventMultipleDefinitionsOfKeysWithPrimitiveValue: false})
	if err != nil {
		return nil, fmt.Errorf("%w: unable to merge payloads: %w", errs.Format, err)
	}
	return dst, nil
}

func findConflict(dst, src map[string]interface{}, prefix string) (string, bool) {
	for key, srcValue := range src {
		srcMap, srcIsMap := srcValue.(map[string]interface{})
		dstValue, ok := dst[key]
		if !ok {
			continue
		}
		dstMap, dstIsMap := dstValue.(map[string]interface{})
		if srcIsMap != dstIsMap {
			return prefix + key, true
		}
		if srcIsMap {
			if conflict, ok := findConflict(dstMap, srcMap, prefix+key+keySeparator); ok {
				return conflict, true
			}
		}
	}
	return "", false
}
