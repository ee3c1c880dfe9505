package loader

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/hpungsan/tddocs/internal/docs"
)

var (
	classRe  = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)\s*(?:\(([^)]*)\))?\s*:`)
	defRe    = regexp.MustCompile(`^def\s+([A-Za-z_]\w*)\s*\((.*)\)\s*(?:->\s*(.+?))?\s*:\s*(?:\.\.\.)?\s*$`)
	attrRe   = regexp.MustCompile(`^([A-Za-z_]\w*)\s*:\s*([^=#]+?)\s*(?:=[^#]*)?(?:#\s*(.*))?$`)
	quotesRe = regexp.MustCompile(`^[rRbBuU]?("""|''')`)
)

// ParseStub extracts the top-level classes declared in a Python stub.
//
// Within a class body it recognizes annotated attributes ("name: type",
// optionally followed by "# description"), methods ("def name(...) -> T:"),
// @property methods (recorded as members), and docstrings directly after the
// class, attribute or method they describe. Names starting with an
// underscore are skipped.
func ParseStub(source string, r io.Reader) ([]docs.RawPythonClass, error) {
	p := &stubParser{source: source}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := p.line(scanner.Text()); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	p.flushClass()
	return p.classes, nil
}

// docTarget receives a docstring.
type docTarget func(text string)

type stubParser struct {
	source  string
	classes []docs.RawPythonClass
	cur     *docs.RawPythonClass

	pendingDoc docTarget       // set right after a declaration
	docQuote   string          // non-empty while inside a multi-line docstring
	docLines   []string
	property   bool            // previous line was @property
	defBuf     strings.Builder // multi-line def being joined
}

func (p *stubParser) line(raw string) error {
	trimmed := strings.TrimSpace(raw)

	if p.docQuote != "" {
		if idx := strings.Index(trimmed, p.docQuote); idx >= 0 {
			p.docLines = append(p.docLines, trimmed[:idx])
			p.finishDoc()
		} else {
			p.docLines = append(p.docLines, trimmed)
		}
		return nil
	}

	if p.defBuf.Len() > 0 {
		p.defBuf.WriteString(" ")
		p.defBuf.WriteString(trimmed)
		if balanced(p.defBuf.String()) {
			joined := p.defBuf.String()
			p.defBuf.Reset()
			p.member(joined)
		}
		return nil
	}

	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}

	if p.pendingDoc != nil {
		if m := quotesRe.FindStringSubmatch(trimmed); m != nil {
			p.startDoc(trimmed[len(m[0]):], m[1])
			return nil
		}
		p.pendingDoc = nil
	}

	indented := raw != "" && (raw[0] == ' ' || raw[0] == '\t')
	if !indented {
		p.flushClass()
		if m := classRe.FindStringSubmatch(trimmed); m != nil {
			p.cur = &docs.RawPythonClass{
				Source:    p.source,
				ClassName: m[1],
				Parent:    firstBase(m[2]),
			}
			cls := p.cur
			p.pendingDoc = func(text string) { cls.Description = text }
		}
		return nil
	}

	if p.cur == nil {
		return nil
	}

	if trimmed == "@property" {
		p.property = true
		return nil
	}
	if strings.HasPrefix(trimmed, "@") {
		return nil
	}

	if strings.HasPrefix(trimmed, "def ") && !balanced(trimmed) {
		p.defBuf.WriteString(trimmed)
		return nil
	}
	p.member(trimmed)
	return nil
}

// member records a def or annotated attribute line of the current class.
func (p *stubParser) member(line string) {
	cls := p.cur
	property := p.property
	p.property = false

	if m := defRe.FindStringSubmatch(line); m != nil {
		name, params, ret := m[1], dropSelf(m[2]), strings.TrimSpace(m[3])
		if strings.HasPrefix(name, "_") {
			return
		}
		if property {
			idx := len(cls.Members)
			cls.Members = append(cls.Members, docs.Member{Name: name, Type: ret})
			p.pendingDoc = func(text string) { cls.Members[idx].Description = text }
			return
		}
		sig := name + "(" + params + ")"
		if ret != "" && ret != "None" {
			sig += " -> " + ret
		}
		idx := len(cls.Methods)
		cls.Methods = append(cls.Methods, docs.Method{Name: name, Signature: sig})
		p.pendingDoc = func(text string) { cls.Methods[idx].Description = text }
		return
	}

	if m := attrRe.FindStringSubmatch(line); m != nil {
		if strings.HasPrefix(m[1], "_") {
			return
		}
		idx := len(cls.Members)
		cls.Members = append(cls.Members, docs.Member{
			Name:        m[1],
			Type:        strings.TrimSpace(m[2]),
			Description: strings.TrimSpace(m[3]),
		})
		p.pendingDoc = func(text string) { cls.Members[idx].Description = text }
	}
}

func (p *stubParser) startDoc(rest, quote string) {
	if idx := strings.Index(rest, quote); idx >= 0 {
		p.docLines = []string{rest[:idx]}
		p.finishDoc()
		return
	}
	p.docQuote = quote
	p.docLines = []string{rest}
}

// finishDoc hands the first paragraph of the collected docstring to the
// pending target.
func (p *stubParser) finishDoc() {
	var para []string
	for _, l := range p.docLines {
		l = strings.TrimSpace(l)
		if l == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, l)
	}
	if p.pendingDoc != nil && len(para) > 0 {
		p.pendingDoc(strings.Join(para, " "))
	}
	p.pendingDoc = nil
	p.docQuote = ""
	p.docLines = nil
}

func (p *stubParser) flushClass() {
	if p.cur != nil {
		p.classes = append(p.classes, *p.cur)
		p.cur = nil
	}
	p.pendingDoc = nil
	p.property = false
}

// firstBase returns the first base class, without generic arguments.
func firstBase(bases string) string {
	first, _, _ := strings.Cut(bases, ",")
	first, _, _ = strings.Cut(first, "[")
	first = strings.TrimSpace(first)
	if strings.Contains(first, "=") {
		return ""
	}
	return first
}

// dropSelf removes a leading self or cls parameter.
func dropSelf(params string) string {
	params = strings.TrimSpace(params)
	for _, recv := range []string{"self", "cls"} {
		if params == recv {
			return ""
		}
		if strings.HasPrefix(params, recv+",") {
			return strings.TrimSpace(params[len(recv)+1:])
		}
	}
	return params
}

// balanced reports whether every "(" in s is closed.
func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth <= 0
}
