// Package docs embeds the user and model facing documentation of fin.
//
// Topics are plain markdown files. Some of them are shown to the user with
// `fin topic`, others are sent to the model as part of the system message or
// the tool descriptions.
package docs

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"text/template"
	"time"
)

//go:embed *.md
var docs embed.FS

// GetTopic returns the content of a documentation topic.
func GetTopic(topic string) (string, error) {
	content, err := docs.ReadFile(topic + ".md")
	if err != nil {
		return "", fmt.Errorf("topic %q not found: %w", topic, err)
	}
	return string(content), nil
}

// MustTopic is like GetTopic but panics if the topic does not exist.
func MustTopic(topic string) string {
	content, err := GetTopic(topic)
	if err != nil {
		panic(err)
	}
	return content
}

// GetAllTopics returns the sorted list of available topics, readme excluded.
func GetAllTopics() ([]string, error) {
	entries, err := fs.ReadDir(docs, ".")
	if err != nil {
		return nil, err
	}
	var topics []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		if base == "readme" {
			continue
		}
		topics = append(topics, base)
	}
	slices.Sort(topics)
	return topics, nil
}

var systemTemplate = template.Must(template.New("system").Parse(MustTopic("system")))

// SystemPrompt renders the system message seeding every transcript.
func SystemPrompt(now time.Time, currency string) (string, error) {
	var b strings.Builder
	err := systemTemplate.Execute(&b, struct {
		Now      string
		Currency string
	}{
		Now:      now.UTC().Format(time.RFC1123),
		Currency: currency,
	})
	if err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}
	return b.String(), nil
}
