package agent

import (
	"context"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Function is a tool the model can call.
type Function interface {
	// Spec declares this function to the model.
	Spec() ToolSpec
	// Call runs the function with the raw JSON arguments sent by the model.
	Call(ctx context.Context, args string) (string, error)
}

// Library is the registry of the tools available to the model.
//
// Calls are dispatched by exact name, after the arguments have been validated
// against the declared parameters schema.
type Library struct {
	funcs   []Function
	byName  map[string]Function
	schemas map[string]*jsonschema.Schema
}

// NewLibrary creates a Library from functions. Names must be unique and
// every parameters schema must compile.
func NewLibrary[T Function](functions ...T) (*Library, error) {
	l := &Library{
		byName:  make(map[string]Function, len(functions)),
		schemas: make(map[string]*jsonschema.Schema, len(functions)),
	}
	for _, f := range functions {
		spec := f.Spec()
		if spec.Name == "" {
			return nil, fmt.Errorf("tool without a name")
		}
		if _, exists := l.byName[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate tool %q", spec.Name)
		}
		sch, err := compileSchema(spec)
		if err != nil {
			return nil, err
		}
		l.funcs = append(l.funcs, f)
		l.byName[spec.Name] = f
		l.schemas[spec.Name] = sch
	}
	return l, nil
}

// Specs returns the declarations of all the tools, in registration order.
func (l *Library) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(l.funcs))
	for _, f := range l.funcs {
		specs = append(specs, f.Spec())
	}
	return specs
}

// Call dispatches call to the named function.
//
// It fails with *UnknownToolError if no function has that name, and with
// *ArgumentParseError if the arguments do not match the declared schema.
func (l *Library) Call(ctx context.Context, call ToolCall) (string, error) {
	f, ok := l.byName[call.Name]
	if !ok {
		return "", &UnknownToolError{Name: call.Name}
	}
	if err := validateArgs(l.schemas[call.Name], call.Arguments); err != nil {
		return "", &ArgumentParseError{Tool: call.Name, Err: err}
	}
	return f.Call(ctx, call.Arguments)
}
