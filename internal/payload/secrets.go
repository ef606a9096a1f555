package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SecretValues returns every string and number value of the document, at
// any depth, except the top-level _public_key. Values are deduplicated and
// blank values are dropped. Keys, booleans and nulls are never returned.
func SecretValues(content string, format Format) ([]string, error) {
	var doc interface{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader([]byte(content)))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	if top, ok := doc.(map[string]interface{}); ok {
		delete(top, PublicKeyField)
	}

	seen := make(map[string]struct{})
	collectScalars(doc, seen)

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

func collectScalars(v interface{}, seen map[string]struct{}) {
	switch t := v.(type) {
	case map[string]interface{}:
		for _, child := range t {
			collectScalars(child, seen)
		}
	case map[interface{}]interface{}:
		for _, child := range t {
			collectScalars(child, seen)
		}
	case []interface{}:
		for _, child := range t {
			collectScalars(child, seen)
		}
	case string:
		if strings.TrimSpace(t) != "" {
			seen[t] = struct{}{}
		}
	case json.Number:
		seen[t.String()] = struct{}{}
	case int, int64, uint64, float64:
		seen[fmt.Sprint(t)] = struct{}{}
	}
}
