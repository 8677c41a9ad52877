package mailer

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

var frontmatterDelim = []byte("---")

// ParsedTemplate is a template body with its frontmatter metadata extracted.
type ParsedTemplate struct {
	Metadata map[string]any
	Body     string
}

// ParseTemplate splits optional YAML frontmatter from a markdown template.
// Frontmatter is delimited by "---" lines at the very top of the file:
//
//	---
//	subject: Your article is ready
//	---
//	Hi {{.Name}}, ...
func ParseTemplate(content []byte) (*ParsedTemplate, error) {
	trimmed := bytes.TrimLeft(content, "\r\n")
	if !bytes.HasPrefix(trimmed, frontmatterDelim) {
		return &ParsedTemplate{Metadata: map[string]any{}, Body: string(content)}, nil
	}

	rest := trimmed[len(frontmatterDelim):]
	end := bytes.Index(rest, frontmatterDelim)
	if end < 0 {
		return nil, errors.Join(ErrInvalidFrontmatter, errors.New("missing closing delimiter"))
	}

	meta := map[string]any{}
	if err := yaml.Unmarshal(rest[:end], &meta); err != nil {
		return nil, errors.Join(ErrInvalidFrontmatter, err)
	}

	body := bytes.TrimLeft(rest[end+len(frontmatterDelim):], "\r\n")
	return &ParsedTemplate{Metadata: meta, Body: string(body)}, nil
}
