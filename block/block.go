// Package block defines content blocks: self contained typed units a document
// is assembled from, the tab block which owns nested blocks, and the document
// tree itself.
package block

import (
	"fmt"
	"html"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"blockdoc/utils/paths"
)

// Type is a block type tag, it selects rendering and property behavior.
type Type string

const (
	TypeHeader       Type = "header"
	TypeText         Type = "text"
	TypeTable        Type = "table"
	TypeMedia        Type = "media"
	TypeImage        Type = "image"
	TypeVideo        Type = "video"
	TypeDisclaimer   Type = "disclaimer"
	TypeSectionTitle Type = "section_title"
	TypeFooter       Type = "footer"
	TypeTabs         Type = "tabs"
)

// Block is a single renderable unit of a document.
type Block interface {
	ID() string
	Type() Type
	DisplayName() string
	SetDisplayName(name string)
	Position() int
	SetPosition(pos int)

	// Content returns a deep copy of the block content.
	Content() map[string]any
	Get(key string) any
	// Update is the only way to mutate content, values are normalized
	// according to the block property schema.
	Update(key string, value any) error

	CustomStyles() map[string]string
	SetCustomStyle(property, value string)

	Render() string

	// MediaReferences returns raw local media paths, URI values are excluded.
	MediaReferences() []string
	// MediaValues returns every media field value including URIs.
	MediaValues() []string
	// UpdateMediaReferences rewrites media fields in place using mapping
	// keyed by normalized path. URI values are left untouched.
	UpdateMediaReferences(mapping map[string]string)

	PropertySchema() Schema
	Clone() Block
}

// base carries state and behavior shared by all block variants.
type base struct {
	id       string
	typ      Type
	name     string
	position int
	schema   Schema
	content  map[string]any
	styles   map[string]string
}

func newBase(t Type, schema Schema, defaults map[string]any) base {
	return base{
		id:      uuid.NewString(),
		typ:     t,
		name:    defaultDisplayName(t),
		schema:  schema,
		content: defaults,
		styles:  make(map[string]string),
	}
}

func defaultDisplayName(t Type) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(t), "_", " "))
}

func (b *base) clone() base {
	return base{
		id:       b.id,
		typ:      b.typ,
		name:     b.name,
		position: b.position,
		schema:   b.schema,
		content:  cloneContent(b.content),
		styles:   maps.Clone(b.styles),
	}
}

func (b *base) ID() string                 { return b.id }
func (b *base) Type() Type                 { return b.typ }
func (b *base) DisplayName() string        { return b.name }
func (b *base) SetDisplayName(name string) { b.name = name }
func (b *base) Position() int              { return b.position }
func (b *base) SetPosition(pos int)        { b.position = pos }
func (b *base) PropertySchema() Schema     { return maps.Clone(b.schema) }
func (b *base) Content() map[string]any    { return cloneContent(b.content) }
func (b *base) Get(key string) any         { return cloneValue(b.content[key]) }

func (b *base) CustomStyles() map[string]string { return maps.Clone(b.styles) }

func (b *base) SetCustomStyle(property, value string) {
	property = strings.TrimSpace(property)
	if property == "" {
		return
	}
	if value = strings.TrimSpace(value); value == "" {
		delete(b.styles, property)
		return
	}
	b.styles[property] = value
}

// Update normalizes value according to the schema and stores it. Fields not
// present in the schema are kept as is.
func (b *base) Update(key string, value any) error {
	kind, ok := b.schema[key]
	if !ok {
		b.content[key] = cloneValue(value)
		return nil
	}
	v, err := coerce(kind, value)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", b.typ, key, err)
	}
	b.content[key] = v
	return nil
}

// typed accessors, absent keys read as zero values

func (b *base) str(key string) string {
	s, _ := b.content[key].(string)
	return s
}

func (b *base) flag(key string) bool {
	v, _ := b.content[key].(bool)
	return v
}

func (b *base) num(key string) int {
	v, _ := b.content[key].(int)
	return v
}

func (b *base) list(key string) []string {
	v, _ := b.content[key].([]string)
	return v
}

func (b *base) items(key string) []MediaItem {
	v, _ := b.content[key].([]MediaItem)
	return v
}

// mediaFields lists schema fields carrying media, in stable order.
func (b *base) mediaFields() []string {
	var fields []string
	for name, kind := range b.schema {
		if kind == KindPath || kind == KindMediaItems {
			fields = append(fields, name)
		}
	}
	slices.Sort(fields)
	return fields
}

func (b *base) MediaValues() []string {
	var out []string
	for _, f := range b.mediaFields() {
		switch b.schema[f] {
		case KindPath:
			if v := b.str(f); v != "" {
				out = append(out, v)
			}
		case KindMediaItems:
			for _, it := range b.items(f) {
				if it.Source != "" {
					out = append(out, it.Source)
				}
			}
		}
	}
	return out
}

func (b *base) MediaReferences() []string {
	var out []string
	for _, v := range b.MediaValues() {
		if !paths.IsURI(v) {
			out = append(out, v)
		}
	}
	return out
}

func (b *base) UpdateMediaReferences(mapping map[string]string) {
	lookup := func(v string) (string, bool) {
		if v == "" || paths.IsURI(v) {
			return "", false
		}
		nv, ok := mapping[paths.Normalize(v)]
		return nv, ok
	}
	for _, f := range b.mediaFields() {
		switch b.schema[f] {
		case KindPath:
			if nv, ok := lookup(b.str(f)); ok {
				b.content[f] = nv
			}
		case KindMediaItems:
			items := b.items(f)
			for i := range items {
				if nv, ok := lookup(items[i].Source); ok {
					items[i].Source = nv
				}
			}
		}
	}
}

// styleAttr renders custom styles as inline style attribute.
func (b *base) styleAttr() string {
	if len(b.styles) == 0 {
		return ""
	}
	keys := slices.Sorted(maps.Keys(b.styles))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+b.styles[k])
	}
	return ` style="` + esc(strings.Join(parts, "; ")) + `"`
}

func esc(s string) string {
	return html.EscapeString(s)
}
