package recalls

import (
	"strings"
	"time"

	"github.com/ukydev/carmemo/internal/models"
	"golang.org/x/net/html"
)

type column int

const (
	colUnknown column = iota
	colNumber
	colDate
	colMake
	colModel
	colYears
	colDescription
)

// headerKeywords maps header text fragments (English and Arabic) to columns.
// Order matters: "model year" must resolve to years before model.
var headerKeywords = []struct {
	keyword string
	col     column
}{
	{"model year", colYears},
	{"year", colYears},
	{"سنة", colYears},
	{"number", colNumber},
	{"no.", colNumber},
	{"رقم", colNumber},
	{"date", colDate},
	{"تاريخ", colDate},
	{"make", colMake},
	{"manufacturer", colMake},
	{"brand", colMake},
	{"الشركة", colMake},
	{"model", colModel},
	{"الطراز", colModel},
	{"description", colDescription},
	{"defect", colDescription},
	{"summary", colDescription},
	{"الوصف", colDescription},
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02", "2 Jan 2006", "January 2, 2006"}

// ParseTable reads the first table with a recognizable header row.
func ParseTable(page string) ([]models.Recall, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}

	var tables []*html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			tables = append(tables, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)

	for _, table := range tables {
		rows := collectRows(table)
		if len(rows) < 2 {
			continue
		}
		cols := headerColumns(rows[0])
		if !hasColumn(cols, colNumber) && !hasColumn(cols, colDescription) {
			continue
		}
		var out []models.Recall
		for _, row := range rows[1:] {
			if r, ok := buildRecall(cols, cellTexts(row)); ok {
				out = append(out, r)
			}
		}
		return out, nil
	}
	return nil, nil
}

func collectRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			rows = append(rows, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

func cellTexts(row *html.Node) []string {
	var cells []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, textContent(c))
		}
	}
	return cells
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func headerColumns(row *html.Node) []column {
	headers := cellTexts(row)
	cols := make([]column, len(headers))
	for i, h := range headers {
		cols[i] = classifyHeader(h)
	}
	return cols
}

func classifyHeader(h string) column {
	h = strings.ToLower(h)
	for _, k := range headerKeywords {
		if strings.Contains(h, k.keyword) {
			return k.col
		}
	}
	return colUnknown
}

func hasColumn(cols []column, want column) bool {
	for _, c := range cols {
		if c == want {
			return true
		}
	}
	return false
}

func buildRecall(cols []column, cells []string) (models.Recall, bool) {
	r := models.Recall{Source: Source}
	for i, text := range cells {
		if i >= len(cols) || text == "" {
			continue
		}
		switch cols[i] {
		case colNumber:
			r.Number = text
		case colDate:
			r.Date = parseDate(text)
		case colMake:
			r.Make = text
		case colModel:
			r.Model = text
		case colYears:
			r.Years = text
		case colDescription:
			r.Description = text
		}
	}
	return r, r.Number != "" || r.Description != ""
}

func parseDate(s string) *time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
