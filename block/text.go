package block

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var textSchema = Schema{
	"title":  KindText,
	"text":   KindMarkdown,
	"format": KindChoice,
}

// FormatMarkdown and FormatPlain are allowed values of text "format" field.
const (
	FormatMarkdown = "markdown"
	FormatPlain    = "plain"
)

// markdown renderer shared by text like blocks, raw HTML is dropped.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Text is a block of free text, markdown by default.
type Text struct {
	base
}

func NewText() *Text {
	return &Text{base: newBase(TypeText, textSchema, map[string]any{
		"title":  "",
		"text":   "",
		"format": FormatMarkdown,
	})}
}

// NewTextWith is a shortcut used by importers and tests.
func NewTextWith(text string) *Text {
	t := NewText()
	t.content["text"] = text
	return t
}

func (t *Text) Clone() Block {
	return &Text{base: t.base.clone()}
}

func (t *Text) Render() string {
	var sb strings.Builder
	sb.WriteString(`<div class="block text-block" id="block-` + esc(t.id) + `"` + t.styleAttr() + ">")
	writeTitle(&sb, t.str("title"))
	sb.WriteString(`<div class="text-content">`)
	if t.str("format") == FormatPlain {
		sb.WriteString(plainToHTML(t.str("text")))
	} else {
		sb.WriteString(markdownToHTML(t.str("text")))
	}
	sb.WriteString("</div></div>")
	return sb.String()
}

func markdownToHTML(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		// goldmark only fails on writer errors, keep text readable anyway
		return plainToHTML(src)
	}
	return strings.TrimSpace(buf.String())
}

func plainToHTML(src string) string {
	return strings.ReplaceAll(esc(src), "\n", "<br>")
}

func writeTitle(sb *strings.Builder, title string) {
	if title != "" {
		sb.WriteString(`<h3 class="block-title">` + esc(title) + `</h3>`)
	}
}
