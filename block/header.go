package block

import "strings"

var headerSchema = Schema{
	"title":     KindText,
	"subtitle":  KindText,
	"logo_path": KindPath,
	"author":    KindText,
	"date":      KindText,
}

// Header renders document title area, always outside of the main container.
type Header struct {
	base
}

func NewHeader() *Header {
	return &Header{base: newBase(TypeHeader, headerSchema, map[string]any{
		"title":     "Document Title",
		"subtitle":  "",
		"logo_path": "",
		"author":    "",
		"date":      "",
	})}
}

func (h *Header) Clone() Block {
	return &Header{base: h.base.clone()}
}

func (h *Header) Render() string {
	var sb strings.Builder
	sb.WriteString(`<header class="doc-header" id="block-` + esc(h.id) + `"` + h.styleAttr() + ">")
	if logo := h.str("logo_path"); logo != "" {
		sb.WriteString(`<img class="header-logo" src="` + esc(logo) + `" alt="Logo">`)
	}
	sb.WriteString(`<div class="header-text"><h1>` + esc(h.str("title")) + `</h1>`)
	if sub := h.str("subtitle"); sub != "" {
		sb.WriteString(`<p class="subtitle">` + esc(sub) + `</p>`)
	}
	sb.WriteString(`</div>`)
	author, date := h.str("author"), h.str("date")
	if author != "" || date != "" {
		sb.WriteString(`<div class="header-meta">`)
		if author != "" {
			sb.WriteString(`<span class="author">` + esc(author) + `</span>`)
		}
		if date != "" {
			sb.WriteString(`<span class="date">` + esc(date) + `</span>`)
		}
		sb.WriteString(`</div>`)
	}
	sb.WriteString("</header>")
	return sb.String()
}
