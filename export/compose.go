package export

import (
	"html"
	"strings"

	"blockdoc/block"
)

// Page carries everything needed to assemble final HTML.
type Page struct {
	Title string
	// Either link to theme stylesheet or inline CSS, Head is used as is.
	Head   string
	Script string
}

type partition struct {
	headers, tabs, footers, others []block.Block
	// body is everything except headers and footers, in position order
	body []block.Block
}

func partitionBlocks(doc block.Document) partition {
	var p partition
	for _, b := range doc.Sorted() {
		switch b.Type() {
		case block.TypeHeader:
			p.headers = append(p.headers, b)
			continue
		case block.TypeFooter:
			p.footers = append(p.footers, b)
			continue
		case block.TypeTabs:
			p.tabs = append(p.tabs, b)
		default:
			p.others = append(p.others, b)
		}
		p.body = append(p.body, b)
	}
	return p
}

// ComposeBody renders document blocks. Headers always come first and
// footers last, both unwrapped. When document has tab groups, the rest of
// it goes into a single container where runs of plain blocks are grouped
// into sections the same way tab panes are. Without tabs plain blocks form
// one numbered card run.
func ComposeBody(doc block.Document) string {
	p := partitionBlocks(doc)

	var sb strings.Builder
	for _, b := range p.headers {
		sb.WriteString(b.Render())
	}

	if len(p.tabs) > 0 {
		sb.WriteString(`<div class="container">`)
		var run []block.Block
		for _, b := range p.body {
			if b.Type() != block.TypeTabs {
				run = append(run, b)
				continue
			}
			block.WriteSectionGroups(&sb, run)
			run = run[:0]
			sb.WriteString(b.Render())
		}
		block.WriteSectionGroups(&sb, run)
		sb.WriteString("</div>")
	} else {
		sb.WriteString(`<main class="content">`)
		block.WriteCards(&sb, p.others)
		sb.WriteString("</main>")
	}

	for _, b := range p.footers {
		sb.WriteString(b.Render())
	}
	return sb.String()
}

// ComposeDocument wraps rendered body into complete HTML page.
func ComposeDocument(doc block.Document, page Page) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	sb.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")
	sb.WriteString("<title>" + html.EscapeString(page.Title) + "</title>\n")
	sb.WriteString(page.Head)
	sb.WriteString("\n</head>\n<body>\n")
	sb.WriteString(ComposeBody(doc))
	sb.WriteString("\n" + lightboxMarkup + "\n")
	sb.WriteString(`<button type="button" class="back-to-top" aria-label="Back to top">&#8593;</button>` + "\n")
	if page.Script != "" {
		sb.WriteString("<script>\n" + page.Script + "\n</script>\n")
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

const lightboxMarkup = `<div class="lightbox" id="lightbox" hidden><img class="lightbox-image" alt=""></div>`
