package block

import (
	"fmt"
	"strings"
)

var mediaSchema = Schema{
	"title":  KindText,
	"items":  KindMediaItems,
	"layout": KindChoice,
}

var imageSchema = Schema{
	"title":    KindText,
	"path":     KindPath,
	"caption":  KindText,
	"alt_text": KindText,
	"width":    KindInt,
}

var videoSchema = Schema{
	"title":    KindText,
	"path":     KindPath,
	"poster":   KindPath,
	"caption":  KindText,
	"autoplay": KindBool,
	"loop":     KindBool,
}

// Media is a gallery of images, videos and audio clips.
type Media struct {
	base
}

func NewMedia() *Media {
	return &Media{base: newBase(TypeMedia, mediaSchema, map[string]any{
		"title":  "",
		"items":  []MediaItem{},
		"layout": "grid",
	})}
}

// AddItem appends media item, source goes through the same normalization as
// Update.
func (m *Media) AddItem(item MediaItem) error {
	items := append(m.items("items"), item)
	return m.Update("items", items)
}

func (m *Media) Clone() Block {
	return &Media{base: m.base.clone()}
}

func (m *Media) Render() string {
	layout := m.str("layout")
	if layout == "" {
		layout = "grid"
	}
	var sb strings.Builder
	sb.WriteString(`<div class="block media-block layout-` + esc(layout) + `" id="block-` + esc(m.id) + `"` + m.styleAttr() + ">")
	writeTitle(&sb, m.str("title"))
	sb.WriteString(`<div class="media-items">`)
	for _, it := range m.items("items") {
		writeMediaItem(&sb, it)
	}
	sb.WriteString("</div></div>")
	return sb.String()
}

func writeMediaItem(sb *strings.Builder, it MediaItem) {
	if it.Source == "" {
		return
	}
	sb.WriteString(`<figure class="media-item">`)
	switch it.Type {
	case "video":
		sb.WriteString(`<video controls preload="metadata" src="` + esc(it.Source) + `"></video>`)
	case "audio":
		sb.WriteString(`<audio controls src="` + esc(it.Source) + `"></audio>`)
	default:
		sb.WriteString(`<img class="lightbox-trigger" loading="lazy" src="` + esc(it.Source) + `" alt="` + esc(it.AltText) + `">`)
	}
	if it.Caption != "" {
		sb.WriteString("<figcaption>" + esc(it.Caption) + "</figcaption>")
	}
	sb.WriteString("</figure>")
}

// Image is a single picture.
type Image struct {
	base
}

func NewImage() *Image {
	return &Image{base: newBase(TypeImage, imageSchema, map[string]any{
		"title":    "",
		"path":     "",
		"caption":  "",
		"alt_text": "",
		"width":    0,
	})}
}

func (i *Image) Clone() Block {
	return &Image{base: i.base.clone()}
}

func (i *Image) Render() string {
	var sb strings.Builder
	sb.WriteString(`<div class="block image-block" id="block-` + esc(i.id) + `"` + i.styleAttr() + ">")
	writeTitle(&sb, i.str("title"))
	if src := i.str("path"); src != "" {
		sb.WriteString(`<figure class="media-item"><img class="lightbox-trigger" loading="lazy" src="` + esc(src) + `" alt="` + esc(i.str("alt_text")) + `"`)
		if w := i.num("width"); w > 0 {
			sb.WriteString(fmt.Sprintf(` width="%d"`, w))
		}
		sb.WriteString(">")
		if c := i.str("caption"); c != "" {
			sb.WriteString("<figcaption>" + esc(c) + "</figcaption>")
		}
		sb.WriteString("</figure>")
	}
	sb.WriteString("</div>")
	return sb.String()
}

// Video is a single video clip with optional poster image.
type Video struct {
	base
}

func NewVideo() *Video {
	return &Video{base: newBase(TypeVideo, videoSchema, map[string]any{
		"title":    "",
		"path":     "",
		"poster":   "",
		"caption":  "",
		"autoplay": false,
		"loop":     false,
	})}
}

func (v *Video) Clone() Block {
	return &Video{base: v.base.clone()}
}

func (v *Video) Render() string {
	var sb strings.Builder
	sb.WriteString(`<div class="block video-block" id="block-` + esc(v.id) + `"` + v.styleAttr() + ">")
	writeTitle(&sb, v.str("title"))
	if src := v.str("path"); src != "" {
		sb.WriteString(`<figure class="media-item"><video controls preload="metadata"`)
		if p := v.str("poster"); p != "" {
			sb.WriteString(` poster="` + esc(p) + `"`)
		}
		if v.flag("autoplay") {
			// browsers refuse to autoplay with sound
			sb.WriteString(" autoplay muted")
		}
		if v.flag("loop") {
			sb.WriteString(" loop")
		}
		sb.WriteString(` src="` + esc(src) + `"></video>`)
		if c := v.str("caption"); c != "" {
			sb.WriteString("<figcaption>" + esc(c) + "</figcaption>")
		}
		sb.WriteString("</figure>")
	}
	sb.WriteString("</div>")
	return sb.String()
}
