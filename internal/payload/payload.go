// Package payload models the decrypted content of a secret file.
//
// Only the top-level "environment" mapping is interpreted. Its entries are
// kept in the order they appear in the document so that outputs and
// environment variables are emitted in a predictable sequence.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format identifies the serialization of a secret file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// EnvironmentKey is the top-level key holding variables to distribute.
const EnvironmentKey = "environment"

// PublicKeyField is the top-level key holding the file's public key.
const PublicKeyField = "_public_key"

// Pair is a single entry of the environment mapping.
type Pair struct {
	Key   string
	Value string
}

// Payload is a parsed decrypted document.
type Payload struct {
	Raw string

	// Environment holds the scalar entries of the environment mapping in
	// document order.
	Environment []Pair

	// HasEnvironment is true when the document has an environment mapping,
	// even an empty one.
	HasEnvironment bool

	// Skipped lists environment keys whose values were not scalars.
	Skipped []string
}

// ErrMalformed is returned when the document cannot be parsed.
var ErrMalformed = errors.New("malformed document")

// Parse decodes content according to format.
func Parse(content string, format Format) (*Payload, error) {
	p := &Payload{Raw: content}

	var err error
	switch format {
	case FormatJSON:
		err = parseJSON(p, content)
	case FormatYAML:
		err = parseYAML(p, content)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PublicKey returns the top-level _public_key value, or "" when the document
// has none.
func PublicKey(content string, format Format) (string, error) {
	switch format {
	case FormatJSON:
		var doc map[string]json.RawMessage
		if err := json.Unmarshal([]byte(content), &doc); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raw, ok := doc[PublicKeyField]
		if !ok {
			return "", nil
		}
		var key string
		if err := json.Unmarshal(raw, &key); err != nil {
			return "", fmt.Errorf("%w: %s is not a string", ErrMalformed, PublicKeyField)
		}
		return key, nil
	case FormatYAML:
		var doc map[string]interface{}
		if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		v, ok := doc[PublicKeyField]
		if !ok || v == nil {
			return "", nil
		}
		key, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("%w: %s is not a string", ErrMalformed, PublicKeyField)
		}
		return key, nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

func parseYAML(p *Payload, content string) error {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: top level is not a mapping", ErrMalformed)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != EnvironmentKey {
			continue
		}
		env := root.Content[i+1]
		if env.Kind == yaml.AliasNode {
			env = env.Alias
		}
		if env.Kind != yaml.MappingNode {
			return nil
		}
		p.HasEnvironment = true
		for j := 0; j+1 < len(env.Content); j += 2 {
			key, value := env.Content[j].Value, env.Content[j+1]
			if value.Kind == yaml.AliasNode {
				value = value.Alias
			}
			if value.Kind != yaml.ScalarNode {
				p.Skipped = append(p.Skipped, key)
				continue
			}
			// null decodes to an empty value, matching the JSON path.
			if value.ShortTag() == "!!null" {
				p.Environment = append(p.Environment, Pair{Key: key})
				continue
			}
			p.Environment = append(p.Environment, Pair{Key: key, Value: value.Value})
		}
		return nil
	}
	return nil
}

// parseJSON walks the token stream so that key order survives decoding.
func parseJSON(p *Payload, content string) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: top level is not an object", ErrMalformed)
	}

	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return err
		}
		if key != EnvironmentKey {
			if err := skipValue(dec); err != nil {
				return err
			}
			continue
		}
		if err := parseJSONEnvironment(p, dec); err != nil {
			return err
		}
	}
	return nil
}

func parseJSONEnvironment(p *Payload, dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	if delim != '{' {
		// environment is an array, skip the rest of it
		return skipRemainder(dec)
	}

	p.HasEnvironment = true
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return err
		}
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch v := tok.(type) {
		case json.Delim:
			p.Skipped = append(p.Skipped, key)
			if err := skipRemainder(dec); err != nil {
				return err
			}
		case string:
			p.Environment = append(p.Environment, Pair{Key: key, Value: v})
		case json.Number:
			p.Environment = append(p.Environment, Pair{Key: key, Value: v.String()})
		case bool:
			p.Environment = append(p.Environment, Pair{Key: key, Value: fmt.Sprint(v)})
		case nil:
			p.Environment = append(p.Environment, Pair{Key: key})
		}
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected token %v", ErrMalformed, tok)
	}
	return key, nil
}

// skipValue consumes the next value, which may be a scalar or a container.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, ok := tok.(json.Delim); ok {
		return skipRemainder(dec)
	}
	return nil
}

// skipRemainder consumes tokens until the container just opened is closed.
func skipRemainder(dec *json.Decoder) error {
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
