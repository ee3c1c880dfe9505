package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/tddocs/internal/docs"
)

// tutorialMeta is the optional YAML frontmatter of a tutorial.
type tutorialMeta struct {
	Name    string   `yaml:"name"`
	Title   string   `yaml:"title"`
	Summary string   `yaml:"summary"`
	Tags    []string `yaml:"tags"`
}

// ParseTutorial parses a markdown tutorial. The name defaults to the file
// stem, the display name to the first level-1 heading, and the summary to
// the first paragraph. Level-2 and level-3 headings become sections.
func ParseTutorial(path string, data []byte) (docs.RawTutorial, error) {
	front, body, err := splitFrontmatter(data)
	if err != nil {
		return docs.RawTutorial{}, err
	}

	var meta tutorialMeta
	if len(front) > 0 {
		if err := yaml.Unmarshal(front, &meta); err != nil {
			return docs.RawTutorial{}, fmt.Errorf("invalid frontmatter: %w", err)
		}
	}

	ol := outlineOf(body)
	return docs.RawTutorial{
		Source:      path,
		Name:        firstNonEmpty(meta.Name, stem(path)),
		DisplayName: firstNonEmpty(meta.Title, ol.title),
		Summary:     firstNonEmpty(meta.Summary, ol.summary),
		Content:     string(body),
		Tags:        meta.Tags,
		Sections:    ol.sections,
	}, nil
}

// splitFrontmatter separates a leading ----delimited YAML block from the body.
// A document without frontmatter is returned whole.
func splitFrontmatter(data []byte) (front, body []byte, err error) {
	lines := bytes.SplitAfter(data, []byte("\n"))
	if len(lines) == 0 || string(bytes.TrimSpace(lines[0])) != "---" {
		return nil, data, nil
	}

	offset := len(lines[0])
	for i := 1; i < len(lines); i++ {
		offset += len(lines[i])
		if string(bytes.TrimSpace(lines[i])) == "---" {
			return bytes.Join(lines[1:i], nil), data[offset:], nil
		}
	}
	return nil, nil, fmt.Errorf("unterminated frontmatter")
}

type outline struct {
	title    string
	summary  string
	sections []string
}

// outlineOf walks the markdown AST for the title, summary and section headings.
func outlineOf(src []byte) outline {
	var out outline
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			title := plainText(node, src)
			switch {
			case node.Level == 1 && out.title == "":
				out.title = title
			case node.Level == 2 || node.Level == 3:
				if title != "" {
					out.sections = append(out.sections, title)
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if out.summary == "" && node.Parent() == root {
				out.summary = plainText(node, src)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// plainText concatenates the text segments under n.
func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
