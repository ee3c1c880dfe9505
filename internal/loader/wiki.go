package loader

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"

	"github.com/hpungsan/tddocs/internal/docs"
)

// WikiParser extracts operator records from wiki HTML pages.
//
// Recognized markup:
//
//	<meta name="operator" content="noiseTOP">    canonical name (else the file stem)
//	<meta name="category" content="TOP">         category (else the directory)
//	<meta name="aliases" content="a, b">         alternate lookup names
//	<h1>                                         display name
//	#summary, .summary                           one-line summary
//	#description (else first <p>)               description, kept as markdown
//	table.parameters tr > td                     name, label, default, description
//	#tips li, #examples li|pre                   tips and examples
type WikiParser struct {
	conv *converter.Converter
}

// NewWikiParser creates a WikiParser with a commonmark+table converter.
func NewWikiParser() *WikiParser {
	return &WikiParser{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// ParseFile reads and parses one operator page. category is the directory
// the page was found in.
func (p *WikiParser) ParseFile(path, category string) (docs.RawOperator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return docs.RawOperator{}, err
	}
	raw, err := p.Parse(data, stem(path), category)
	if err != nil {
		return docs.RawOperator{}, fmt.Errorf("parse %s: %w", path, err)
	}
	raw.Source = path
	return raw, nil
}

// Parse extracts an operator from page HTML. name and category are fallbacks
// used when the page carries no meta overrides.
func (p *WikiParser) Parse(page []byte, name, category string) (docs.RawOperator, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return docs.RawOperator{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	raw := docs.RawOperator{
		Name:     firstNonEmpty(metaContent(doc, "operator"), name),
		Category: firstNonEmpty(metaContent(doc, "category"), category),
	}
	raw.DisplayName = strings.TrimSpace(doc.Find("h1").First().Text())
	raw.Summary = strings.TrimSpace(doc.Find("#summary, .summary").First().Text())

	if aliases := metaContent(doc, "aliases"); aliases != "" {
		raw.Aliases = strings.Split(aliases, ",")
	}

	desc := doc.Find("#description").First()
	if desc.Length() == 0 {
		desc = doc.Find("p").Not("#summary, .summary").First()
	}
	if desc.Length() > 0 {
		raw.Description = p.markdown(desc)
	}

	doc.Find("table.parameters tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		cell := func(i int) string {
			return strings.TrimSpace(cells.Eq(i).Text())
		}
		raw.Parameters = append(raw.Parameters, docs.Parameter{
			Name:        cell(0),
			Label:       cell(1),
			Default:     cell(2),
			Description: cell(3),
		})
	})

	doc.Find("#tips li").Each(func(_ int, li *goquery.Selection) {
		raw.Tips = append(raw.Tips, strings.TrimSpace(li.Text()))
	})
	doc.Find("#examples li, #examples pre").Each(func(_ int, ex *goquery.Selection) {
		raw.Examples = append(raw.Examples, strings.TrimSpace(ex.Text()))
	})

	return raw, nil
}

// markdown converts a selection's outer HTML to markdown, falling back to
// its plain text.
func (p *WikiParser) markdown(sel *goquery.Selection) string {
	html, err := goquery.OuterHtml(sel)
	if err == nil && strings.TrimSpace(html) != "" {
		if md, err := p.conv.ConvertString(html); err == nil {
			return strings.TrimSpace(md)
		}
	}
	return strings.TrimSpace(sel.Text())
}

func metaContent(doc *goquery.Document, name string) string {
	v, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).Attr("content")
	return strings.TrimSpace(v)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
