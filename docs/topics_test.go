package docs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// TestTopics checks that docs/readme.md lists exactly the embedded topics,
// and that each listed topic can be loaded.
func TestTopics(t *testing.T) {
	content, err := os.ReadFile("readme.md")
	require.NoError(t, err)

	var listed []string
	root := goldmark.DefaultParser().Parse(text.NewReader(content))
	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindListItem {
			return ast.WalkContinue, nil
		}
		var line strings.Builder
		lines := n.FirstChild().Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			line.Write(seg.Value(content))
		}
		name, _, ok := strings.Cut(line.String(), ":")
		if ok {
			listed = append(listed, strings.TrimSpace(name))
		}
		return ast.WalkSkipChildren, nil
	})
	require.NoError(t, err)

	for _, topic := range listed {
		_, err := GetTopic(topic)
		assert.NoError(t, err, "topic %q", topic)
	}

	all, err := GetAllTopics()
	require.NoError(t, err)
	assert.ElementsMatch(t, all, listed)
}

// TestJSONBlocks checks that every json fenced block in the topics is valid.
func TestJSONBlocks(t *testing.T) {
	files, err := filepath.Glob("*.md")
	require.NoError(t, err)

	for _, file := range files {
		content, err := os.ReadFile(file)
		require.NoError(t, err)

		root := goldmark.DefaultParser().Parse(text.NewReader(content))
		_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			fcb, ok := n.(*ast.FencedCodeBlock)
			if !entering || !ok || fcb.Info == nil {
				return ast.WalkContinue, nil
			}
			if string(fcb.Info.Segment.Value(content)) != "json" {
				return ast.WalkContinue, nil
			}
			var b strings.Builder
			for i := 0; i < fcb.Lines().Len(); i++ {
				line := fcb.Lines().At(i)
				b.Write(line.Value(content))
			}
			assert.True(t, json.Valid([]byte(b.String())), "%s: invalid json block:\n%s", file, b.String())
			return ast.WalkContinue, nil
		})
	}
}

func TestSystemPrompt(t *testing.T) {
	now := time.Date(2025, 8, 15, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

	got, err := SystemPrompt(now, "INR")
	require.NoError(t, err)
	assert.Contains(t, got, "personal finance assistant")
	assert.Contains(t, got, "amounts are in INR")
	assert.Contains(t, got, "current datetime: Fri, 15 Aug 2025 04:00:00 UTC")
}
