package block

import "strings"

var disclaimerSchema = Schema{
	"title": KindText,
	"text":  KindMarkdown,
	"level": KindChoice,
}

var sectionTitleSchema = Schema{
	"title":    KindText,
	"subtitle": KindText,
}

// Disclaimer levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelDanger  = "danger"
)

// Disclaimer is a highlighted note, never wrapped into numbered card.
type Disclaimer struct {
	base
}

func NewDisclaimer() *Disclaimer {
	return &Disclaimer{base: newBase(TypeDisclaimer, disclaimerSchema, map[string]any{
		"title": "",
		"text":  "",
		"level": LevelWarning,
	})}
}

func (d *Disclaimer) Clone() Block {
	return &Disclaimer{base: d.base.clone()}
}

func (d *Disclaimer) Render() string {
	level := d.str("level")
	switch level {
	case LevelInfo, LevelWarning, LevelDanger:
	default:
		level = LevelWarning
	}
	var sb strings.Builder
	sb.WriteString(`<div class="disclaimer disclaimer-` + level + `" role="note" id="block-` + esc(d.id) + `"` + d.styleAttr() + ">")
	if t := d.str("title"); t != "" {
		sb.WriteString(`<strong class="disclaimer-title">` + esc(t) + `</strong>`)
	}
	sb.WriteString(`<div class="disclaimer-text">` + markdownToHTML(d.str("text")) + `</div></div>`)
	return sb.String()
}

// SectionTitle starts new section group inside a tab.
type SectionTitle struct {
	base
}

func NewSectionTitle() *SectionTitle {
	return &SectionTitle{base: newBase(TypeSectionTitle, sectionTitleSchema, map[string]any{
		"title":    "Section",
		"subtitle": "",
	})}
}

// NewSectionTitleWith is a shortcut used by importers and tests.
func NewSectionTitleWith(title string) *SectionTitle {
	s := NewSectionTitle()
	s.content["title"] = title
	return s
}

func (s *SectionTitle) Clone() Block {
	return &SectionTitle{base: s.base.clone()}
}

func (s *SectionTitle) Render() string {
	var sb strings.Builder
	sb.WriteString(`<div class="section-title" id="block-` + esc(s.id) + `"` + s.styleAttr() + `><h2>` + esc(s.str("title")) + `</h2>`)
	if sub := s.str("subtitle"); sub != "" {
		sb.WriteString(`<p class="section-subtitle">` + esc(sub) + `</p>`)
	}
	sb.WriteString("</div>")
	return sb.String()
}
