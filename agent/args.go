package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ArgumentParseError reports arguments that could not be turned into the
// typed record a tool expects: malformed JSON or a schema violation.
type ArgumentParseError struct {
	Tool string
	Err  error
}

func (e *ArgumentParseError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *ArgumentParseError) Unwrap() error { return e.Err }

// UnknownToolError reports a call to a tool that is not in the Library.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string { return fmt.Sprintf("unknown tool %q", e.Name) }

// Func is a Function whose JSON arguments are decoded into A before the call.
type Func[A any] struct {
	Decl ToolSpec
	Func func(ctx context.Context, args A) (string, error)
}

func (f *Func[A]) Spec() ToolSpec { return f.Decl }

func (f *Func[A]) Call(ctx context.Context, payload string) (string, error) {
	var args A
	if err := decodeArgs(payload, &args); err != nil {
		return "", &ArgumentParseError{Tool: f.Decl.Name, Err: err}
	}
	return f.Func(ctx, args)
}

// NoArgs is the argument record of tools without parameters.
type NoArgs struct{}

// decodeArgs decodes a JSON object payload into v. An empty payload is an
// empty object, models send that for tools without parameters.
func decodeArgs(payload string, v any) error {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		payload = "{}"
	}
	dec := json.NewDecoder(strings.NewReader(payload))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after arguments")
	}
	return nil
}

// compileSchema compiles the parameters schema of spec.
func compileSchema(spec ToolSpec) (*jsonschema.Schema, error) {
	params := spec.Parameters
	if params == nil {
		params = map[string]any{"type": "object"}
	}
	// Round trip through JSON: the compiler only knows the generic JSON types.
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal schema of %s: %w", spec.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema of %s: %w", spec.Name, err)
	}
	c := jsonschema.NewCompiler()
	url := "urn:fintalk:tool:" + spec.Name
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema of %s: %w", spec.Name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema of %s: %w", spec.Name, err)
	}
	return sch, nil
}

// validateArgs checks a raw payload against a compiled schema.
func validateArgs(sch *jsonschema.Schema, payload string) error {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		payload = "{}"
	}
	v, err := jsonschema.UnmarshalJSON(strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	return sch.Validate(v)
}
