package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrMalformed means the payload could not be parsed as JSON at all.
	ErrMalformed = errors.New("report is not parseable JSON")

	// ErrInvalid means the payload parsed but lacks required structure.
	ErrInvalid = errors.New("report does not match the expected structure")
)

const schemaResource = "translation_quality_report.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// Decode turns raw analyzer output into a validated Report.
// Parse failures wrap ErrMalformed; structural failures wrap ErrInvalid.
func Decode(raw []byte) (*Report, error) {
	doc, err := extractJSON(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}

	var r Report
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if r.Issues == nil {
		r.Issues = []Issue{}
	}
	return &r, nil
}

// Validate checks a parsed JSON document against the report schema.
func Validate(doc json.RawMessage) error {
	schema, err := reportSchema()
	if err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// SchemaDocument returns the bare JSON schema, without the response-format wrapper.
func SchemaDocument() (json.RawMessage, error) {
	wrapper, ok := ResponseSchema["json_schema"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response schema missing json_schema wrapper")
	}
	b, err := json.Marshal(wrapper["schema"])
	if err != nil {
		return nil, fmt.Errorf("failed to serialize report schema: %w", err)
	}
	return b, nil
}

func reportSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := SchemaDocument()
		if err != nil {
			compileErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaResource, bytes.NewReader(doc)); err != nil {
			compileErr = fmt.Errorf("failed to load report schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(schemaResource)
		if compileErr != nil {
			compileErr = fmt.Errorf("failed to compile report schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// extractJSON finds a JSON document in model output. Models often wrap the
// document in a markdown fence or surround it with prose.
func extractJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("empty output")
	}

	candidates := []string{content}
	if fenced := unfence(content); fenced != "" {
		candidates = append(candidates, fenced)
	}
	if obj := outermostObject(content); obj != "" {
		candidates = append(candidates, obj)
	}

	for _, candidate := range candidates {
		if json.Valid([]byte(candidate)) {
			var compact bytes.Buffer
			if err := json.Compact(&compact, []byte(candidate)); err != nil {
				return nil, err
			}
			return compact.Bytes(), nil
		}
	}
	return nil, errors.New("no JSON document found")
}

func unfence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func outermostObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
