package dialect

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "schema://dialect.json"

// SupportedMajor is the dialect file major version this package reads.
const SupportedMajor = "v1"

var compiledSchema = sync.OnceValues(compileSchema)

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if compiler.Formats == nil {
		compiler.Formats = make(map[string]func(interface{}) bool)
	}
	compiler.Formats["semver"] = isSemver

	// The schema is self-contained.
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("external $ref not allowed: %s", url)
	}

	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
}

// isSemver accepts versions with or without the "v" prefix.
func isSemver(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return true // Type validation happens separately
	}
	return semver.IsValid(canonicalVersion(s))
}

func canonicalVersion(s string) string {
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	return s
}

// Parse decodes and validates a YAML dialect document.
func Parse(data []byte) (*Dialect, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse dialect: %w", err)
	}
	if doc == nil {
		return nil, errors.New("parse dialect: empty document")
	}

	// Round trip through JSON so the validator sees JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse dialect: %w", err)
	}
	var instance interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return nil, fmt.Errorf("parse dialect: %w", err)
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("dialect schema: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, convertValidationError(err)
	}

	var d Dialect
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode dialect: %w", err)
	}
	if major := semver.Major(canonicalVersion(d.Version)); major != SupportedMajor {
		return nil, fmt.Errorf("unsupported dialect version %s (want %s.x.y)", d.Version, SupportedMajor)
	}
	return &d, nil
}

// Marshal renders the dialect as YAML.
func (d *Dialect) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode dialect: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode dialect: %w", err)
	}
	return buf.Bytes(), nil
}

// ValidationError lists every schema violation of a dialect document.
type ValidationError struct {
	Problems []string // "/path: message", deepest causes only
}

func (e *ValidationError) Error() string {
	return "invalid dialect:\n  " + strings.Join(e.Problems, "\n  ")
}

// convertValidationError flattens a jsonschema error to its leaf causes.
func convertValidationError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	out := &ValidationError{}
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out.Problems = append(out.Problems, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
