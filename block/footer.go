package block

import "strings"

var footerSchema = Schema{
	"org":       KindText,
	"text":      KindMultiline,
	"logo_path": KindPath,
	"contact":   KindText,
}

// Footer renders closing area, always last and outside of the main container.
type Footer struct {
	base
}

func NewFooter() *Footer {
	return &Footer{base: newBase(TypeFooter, footerSchema, map[string]any{
		"org":       "",
		"text":      "",
		"logo_path": "",
		"contact":   "",
	})}
}

func (f *Footer) Clone() Block {
	return &Footer{base: f.base.clone()}
}

func (f *Footer) Render() string {
	var sb strings.Builder
	sb.WriteString(`<footer class="doc-footer" id="block-` + esc(f.id) + `"` + f.styleAttr() + ">")
	if logo := f.str("logo_path"); logo != "" {
		sb.WriteString(`<img class="footer-logo" src="` + esc(logo) + `" alt="Logo">`)
	}
	if org := f.str("org"); org != "" {
		sb.WriteString(`<div class="footer-org">` + esc(org) + `</div>`)
	}
	if text := f.str("text"); text != "" {
		sb.WriteString(`<div class="footer-text">` + plainToHTML(text) + `</div>`)
	}
	if contact := f.str("contact"); contact != "" {
		sb.WriteString(`<div class="footer-contact">` + esc(contact) + `</div>`)
	}
	sb.WriteString("</footer>")
	return sb.String()
}
