package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Text  string  `json:"text"`
	Times float64 `json:"times"`
}

var echoDecl = ToolSpec{
	Name:        "echo",
	Description: "Repeat text.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":  map[string]any{"type": "string", "minLength": 1},
			"times": map[string]any{"type": "number"},
		},
		"required": []string{"text"},
	},
}

func newEchoLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := NewLibrary(&Func[echoArgs]{
		Decl: echoDecl,
		Func: func(ctx context.Context, args echoArgs) (string, error) {
			if args.Times < 0 {
				return "", errors.New("times must be positive")
			}
			return args.Text, nil
		},
	})
	require.NoError(t, err)
	return lib
}

func TestLibrary_Call(t *testing.T) {
	lib := newEchoLibrary(t)

	testCases := []struct {
		name      string
		call      ToolCall
		want      string
		wantParse bool
		wantErr   string
	}{
		{name: "ok", call: ToolCall{Name: "echo", Arguments: `{"text":"hi"}`}, want: "hi"},
		{name: "extra fields", call: ToolCall{Name: "echo", Arguments: `{"text":"hi","mood":"happy"}`}, want: "hi"},
		{name: "malformed", call: ToolCall{Name: "echo", Arguments: `{"text":`}, wantParse: true},
		{name: "not an object", call: ToolCall{Name: "echo", Arguments: `"hi"`}, wantParse: true},
		{name: "missing required", call: ToolCall{Name: "echo", Arguments: `{}`}, wantParse: true},
		{name: "empty payload", call: ToolCall{Name: "echo", Arguments: ``}, wantParse: true},
		{name: "wrong type", call: ToolCall{Name: "echo", Arguments: `{"text":"hi","times":"twice"}`}, wantParse: true},
		{name: "empty text", call: ToolCall{Name: "echo", Arguments: `{"text":""}`}, wantParse: true},
		{name: "handler error", call: ToolCall{Name: "echo", Arguments: `{"text":"hi","times":-1}`}, wantErr: "times must be positive"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := lib.Call(context.Background(), tc.call)
			switch {
			case tc.wantParse:
				var perr *ArgumentParseError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, "echo", perr.Tool)
			case tc.wantErr != "":
				assert.EqualError(t, err, tc.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestLibrary_ParseErrorNamesNoLocalPath(t *testing.T) {
	lib := newEchoLibrary(t)

	_, err := lib.Call(context.Background(), ToolCall{Name: "echo", Arguments: `{"text":""}`})
	var perr *ArgumentParseError
	require.ErrorAs(t, err, &perr)
	assert.NotContains(t, err.Error(), "file://")
	assert.NotContains(t, err.Error(), "echo.json")
}

func TestLibrary_UnknownTool(t *testing.T) {
	lib := newEchoLibrary(t)

	_, err := lib.Call(context.Background(), ToolCall{Name: "Echo", Arguments: `{"text":"hi"}`})
	var uerr *UnknownToolError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "Echo", uerr.Name)
}

func TestNewLibrary_Errors(t *testing.T) {
	noop := func(ctx context.Context, _ NoArgs) (string, error) { return "", nil }

	_, err := NewLibrary(&Func[NoArgs]{Decl: echoDecl, Func: noop}, &Func[NoArgs]{Decl: echoDecl, Func: noop})
	assert.ErrorContains(t, err, "duplicate tool")

	bad := ToolSpec{Name: "bad", Parameters: map[string]any{"type": 12}}
	_, err = NewLibrary(&Func[NoArgs]{Decl: bad, Func: noop})
	assert.ErrorContains(t, err, "compile schema of bad")
}

func TestDecodeArgs(t *testing.T) {
	var args echoArgs
	require.NoError(t, decodeArgs(`  {"text":"hi","times":2} `, &args))
	assert.Equal(t, echoArgs{Text: "hi", Times: 2}, args)

	assert.Error(t, decodeArgs(`{"text":"hi"} {}`, &args))
	assert.NoError(t, decodeArgs("", &NoArgs{}))
}
