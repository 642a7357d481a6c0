package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"

	"blockdoc/block"
	"blockdoc/common"
	"blockdoc/config"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Title      string
	Subtitle   string
	Author     string
	Date       string
	Media      string
	SourceFile string
	Tabs       []string
}

func buildValues(name config.TemplateFieldName, doc block.Document, title, src string, strategy common.MediaStrategy) Values {
	v := Values{
		Context:    string(name),
		Title:      title,
		Media:      strategy.String(),
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Date:       time.Now().Format("2006-01-02"),
	}
	for _, b := range doc.Sorted() {
		switch b.Type() {
		case block.TypeHeader:
			if s, _ := b.Get("subtitle").(string); s != "" && v.Subtitle == "" {
				v.Subtitle = s
			}
			if s, _ := b.Get("author").(string); s != "" && v.Author == "" {
				v.Author = s
			}
			if s, _ := b.Get("date").(string); s != "" {
				v.Date = s
			}
		case block.TypeTabs:
			if t, ok := b.(*block.Tabs); ok {
				v.Tabs = append(v.Tabs, t.TabNames()...)
			}
		}
	}
	return v
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
