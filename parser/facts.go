package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"mars-scraper/models"
	"mars-scraper/scrapeerr"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Column labels of the facts table
const (
	ParameterColumn = "Parameter"
	ValueColumn     = "Values"
)

// ParseFacts reads the first <table> of the page into parameter/value rows.
// Only the first two cells of a row are used; header-only rows and rows with
// fewer than two cells are skipped.
func (p *Parser) ParseFacts(htmlContent string) (models.FactsTable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return models.FactsTable{}, scrapeerr.TableParse("facts", fmt.Errorf("failed to parse HTML: %w", err))
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return models.FactsTable{}, scrapeerr.TableParse("facts", fmt.Errorf("no <table> on page"))
	}

	var rows []models.Fact
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		// rows of nested tables belong to those tables
		if row.Closest("table").Get(0) != table.Get(0) {
			return
		}
		cells := row.ChildrenFiltered("td, th")
		if cells.Length() < 2 || cells.Length() == cells.Filter("th").Length() {
			return
		}
		rows = append(rows, models.Fact{
			Parameter: strings.TrimSpace(cells.Eq(0).Text()),
			Value:     strings.TrimSpace(cells.Eq(1).Text()),
		})
	})

	if len(rows) == 0 {
		return models.FactsTable{}, scrapeerr.TableParse("facts", fmt.Errorf("table has no rows with two columns"))
	}

	rendered, err := RenderFacts(rows)
	if err != nil {
		return models.FactsTable{}, err
	}
	return models.FactsTable{Rows: rows, HTML: rendered}, nil
}

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attrs}
}

func textElement(tag, text string) *html.Node {
	n := element(tag)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

// RenderFacts renders rows as an HTML table with an index column and a
// Parameter/Values header. Newlines are stripped from the output.
func RenderFacts(rows []models.Fact) (string, error) {
	table := element("table",
		html.Attribute{Key: "border", Val: "1"},
		html.Attribute{Key: "class", Val: "dataframe"},
	)

	thead := element("thead")
	header := element("tr", html.Attribute{Key: "style", Val: "text-align: right;"})
	header.AppendChild(element("th"))
	header.AppendChild(textElement("th", ParameterColumn))
	header.AppendChild(textElement("th", ValueColumn))
	thead.AppendChild(header)
	table.AppendChild(thead)

	tbody := element("tbody")
	for i, f := range rows {
		tr := element("tr")
		tr.AppendChild(textElement("th", strconv.Itoa(i)))
		tr.AppendChild(textElement("td", f.Parameter))
		tr.AppendChild(textElement("td", f.Value))
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)

	var buf bytes.Buffer
	if err := html.Render(&buf, table); err != nil {
		return "", fmt.Errorf("failed to render facts table: %w", err)
	}
	return strings.ReplaceAll(buf.String(), "\n", ""), nil
}
