package block

import "strings"

var tableSchema = Schema{
	"title":   KindText,
	"headers": KindStringList,
	"rows":    KindTable,
	"caption": KindText,
}

// Table renders tabular data, rows shorter than headers are padded.
type Table struct {
	base
}

func NewTable() *Table {
	return &Table{base: newBase(TypeTable, tableSchema, map[string]any{
		"title":   "",
		"headers": []string{"Column 1", "Column 2"},
		"rows":    [][]string{},
		"caption": "",
	})}
}

func (t *Table) Clone() Block {
	return &Table{base: t.base.clone()}
}

func (t *Table) Render() string {
	headers := t.list("headers")
	rows, _ := t.content["rows"].([][]string)

	width := len(headers)
	for _, r := range rows {
		width = max(width, len(r))
	}

	var sb strings.Builder
	sb.WriteString(`<div class="block table-block" id="block-` + esc(t.id) + `"` + t.styleAttr() + ">")
	writeTitle(&sb, t.str("title"))
	sb.WriteString(`<table class="data-table">`)
	if len(headers) > 0 {
		sb.WriteString("<thead><tr>")
		for i := range width {
			cell := ""
			if i < len(headers) {
				cell = headers[i]
			}
			sb.WriteString("<th>" + esc(cell) + "</th>")
		}
		sb.WriteString("</tr></thead>")
	}
	sb.WriteString("<tbody>")
	for _, r := range rows {
		sb.WriteString("<tr>")
		for i := range width {
			cell := ""
			if i < len(r) {
				cell = r[i]
			}
			sb.WriteString("<td>" + plainToHTML(cell) + "</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table>")
	if c := t.str("caption"); c != "" {
		sb.WriteString(`<p class="table-caption">` + esc(c) + `</p>`)
	}
	sb.WriteString("</div>")
	return sb.String()
}
