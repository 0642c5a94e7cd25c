// Package render turns a resolved, enriched block tree into HTML. The
// renderer is pure and synchronous; every asset and link preview must
// already be materialized on the tree before it runs.
package render

import (
	"fmt"
	"html/template"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/notionpress/core/internal/notion"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	slugStripPattern  = regexp.MustCompile(`[^\p{L}\p{N}_-]`)
	youtubePattern    = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([\w-]+)`)
	altSeparators     = strings.NewReplacer("-", " ", "_", " ")
)

// Renderer maps block trees to markup. SiteOrigin distinguishes
// internal navigation links from external ones.
type Renderer struct {
	siteOrigin string
}

func New(siteOrigin string) *Renderer {
	return &Renderer{siteOrigin: strings.TrimSuffix(siteOrigin, "/")}
}

// Render produces the HTML for one page's block tree. Heading IDs are
// unique within one call; unrecognized block types render nothing.
func (r *Renderer) Render(blocks []notion.Block) string {
	p := &pass{renderer: r, headingIDs: map[string]bool{}}
	p.b.Grow(4096)
	p.renderBlocks(blocks)
	return p.b.String()
}

// pass carries the per-render state: the output buffer and the heading
// ID collision counters.
type pass struct {
	renderer   *Renderer
	b          strings.Builder
	// headingIDs records every anchor handed out in this pass; a
	// duplicate slug takes the first free -2, -3, ... suffix, even
	// when a literal "x-2" heading already claimed one.
	headingIDs map[string]bool
}

// renderBlocks walks one sibling level, merging consecutive list items
// of the same kind into a single enclosing list. Any other block type
// breaks the run.
func (p *pass) renderBlocks(blocks []notion.Block) {
	i := 0
	for i < len(blocks) {
		t := blocks[i].Type
		if t != notion.BlockBulletedListItem && t != notion.BlockNumberedListItem {
			p.renderBlock(blocks[i])
			i++
			continue
		}
		j := i
		for j < len(blocks) && blocks[j].Type == t {
			j++
		}
		tag := "ul"
		if t == notion.BlockNumberedListItem {
			tag = "ol"
		}
		fmt.Fprintf(&p.b, "<%s>", tag)
		for _, item := range blocks[i:j] {
			p.b.WriteString("<li>")
			p.richText(item.RichTextRuns())
			p.renderBlocks(item.Children)
			p.b.WriteString("</li>")
		}
		fmt.Fprintf(&p.b, "</%s>", tag)
		i = j
	}
}

func (p *pass) renderBlock(block notion.Block) {
	if !hasPayload(block) {
		return
	}
	switch block.Type {
	case notion.BlockParagraph:
		p.b.WriteString("<p>")
		p.richText(block.Text.RichText)
		p.b.WriteString("</p>")
		p.renderBlocks(block.Children)
	case notion.BlockHeading1:
		p.heading("h1", block)
	case notion.BlockHeading2:
		p.heading("h2", block)
	case notion.BlockHeading3:
		p.heading("h3", block)
	case notion.BlockCode:
		p.code(block)
	case notion.BlockCallout:
		p.callout(block)
	case notion.BlockQuote:
		p.b.WriteString("<blockquote>")
		p.richText(block.Text.RichText)
		p.renderBlocks(block.Children)
		p.b.WriteString("</blockquote>")
	case notion.BlockToggle:
		p.b.WriteString("<details><summary>")
		p.richText(block.Text.RichText)
		p.b.WriteString("</summary>")
		p.renderBlocks(block.Children)
		p.b.WriteString("</details>")
	case notion.BlockToDo:
		p.todo(block)
	case notion.BlockImage:
		p.image(block)
	case notion.BlockVideo:
		p.video(block)
	case notion.BlockAudio:
		fmt.Fprintf(&p.b, `<audio controls src="%s"></audio>`, attr(block.File.URL))
	case notion.BlockFile, notion.BlockPDF:
		p.fileLink(block)
	case notion.BlockDivider:
		p.b.WriteString("<hr/>")
	case notion.BlockBookmark, notion.BlockLinkPreview:
		p.bookmark(block)
	case notion.BlockEmbed:
		fmt.Fprintf(&p.b, `<div class="embed"><iframe src="%s" loading="lazy" allowfullscreen></iframe></div>`, attr(block.Link.URL))
	case notion.BlockTable:
		p.table(block)
	case notion.BlockColumnList:
		p.b.WriteString(`<div class="columns">`)
		for _, col := range block.Children {
			p.b.WriteString(`<div class="column">`)
			p.renderBlocks(col.Children)
			p.b.WriteString("</div>")
		}
		p.b.WriteString("</div>")
	case notion.BlockSyncedBlock:
		p.renderBlocks(block.Children)
	case notion.BlockLinkToPage:
		p.linkToPage(block)
	case notion.BlockEquation:
		fmt.Fprintf(&p.b, `<div class="katex-render">%s</div>`, esc(block.Equation.Expression))
	default:
		// Unrendered block types are skipped silently.
	}
}

// hasPayload reports whether the payload the block's type needs was
// actually decoded. Divider-style blocks carry none.
func hasPayload(block notion.Block) bool {
	switch block.Type {
	case notion.BlockParagraph, notion.BlockHeading1, notion.BlockHeading2,
		notion.BlockHeading3, notion.BlockQuote, notion.BlockToggle:
		return block.Text != nil
	case notion.BlockCode:
		return block.Code != nil
	case notion.BlockCallout:
		return block.Callout != nil
	case notion.BlockToDo:
		return block.ToDo != nil
	case notion.BlockImage, notion.BlockVideo, notion.BlockAudio,
		notion.BlockFile, notion.BlockPDF:
		return block.File != nil
	case notion.BlockBookmark, notion.BlockLinkPreview, notion.BlockEmbed:
		return block.Link != nil
	case notion.BlockTable:
		return block.Table != nil
	case notion.BlockEquation:
		return block.Equation != nil
	case notion.BlockLinkToPage:
		return block.LinkToPage != nil
	}
	return true
}

func (p *pass) heading(tag string, block notion.Block) {
	id := p.headingID(block)
	fmt.Fprintf(&p.b, `<%s id="%s">`, tag, attr(id))
	p.richText(block.Text.RichText)
	fmt.Fprintf(&p.b, "</%s>", tag)
}

// headingID derives a URL-safe anchor from the heading text. Repeated
// text within one render pass gets a numeric suffix so anchors stay
// unique.
func (p *pass) headingID(block notion.Block) string {
	slug := strings.ToLower(strings.TrimSpace(notion.PlainText(block.Text.RichText)))
	slug = whitespacePattern.ReplaceAllString(slug, "-")
	slug = slugStripPattern.ReplaceAllString(slug, "")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "heading-" + block.ID
	}
	id := slug
	for n := 2; p.headingIDs[id]; n++ {
		id = fmt.Sprintf("%s-%d", slug, n)
	}
	p.headingIDs[id] = true
	return id
}

func (p *pass) code(block notion.Block) {
	lang := block.Code.Language
	if lang == "" {
		lang = "plain text"
	}
	fmt.Fprintf(&p.b, `<figure class="code-block" data-language="%s">`, attr(lang))
	fmt.Fprintf(&p.b, `<pre><code class="language-%s">%s</code></pre>`, attr(lang), esc(notion.PlainText(block.Code.RichText)))
	if len(block.Code.Caption) > 0 {
		p.b.WriteString("<figcaption>")
		p.richText(block.Code.Caption)
		p.b.WriteString("</figcaption>")
	}
	p.b.WriteString("</figure>")
}

func (p *pass) callout(block notion.Block) {
	icon := block.Callout.Icon
	if icon == "" {
		icon = "💡"
	}
	class := "callout"
	if c := colorClass(block.Callout.Color); c != "" {
		class += " " + c
	}
	fmt.Fprintf(&p.b, `<aside class="%s"><span class="callout-icon">%s</span><div>`, attr(class), esc(icon))
	p.richText(block.Callout.RichText)
	p.renderBlocks(block.Children)
	p.b.WriteString("</div></aside>")
}

func (p *pass) todo(block notion.Block) {
	checked := ""
	class := "to-do"
	if block.ToDo.Checked {
		checked = " checked"
		class += " done"
	}
	fmt.Fprintf(&p.b, `<div class="%s"><input type="checkbox" disabled%s/><span>`, class, checked)
	p.richText(block.ToDo.RichText)
	p.renderBlocks(block.Children)
	p.b.WriteString("</span></div>")
}

func (p *pass) image(block notion.Block) {
	alt := imageAlt(block.File)
	p.b.WriteString("<figure>")
	fmt.Fprintf(&p.b, `<img src="%s" alt="%s" loading="lazy"/>`, attr(block.File.URL), attr(alt))
	if len(block.File.Caption) > 0 {
		p.b.WriteString("<figcaption>")
		p.richText(block.File.Caption)
		p.b.WriteString("</figcaption>")
	}
	p.b.WriteString("</figure>")
}

func (p *pass) video(block notion.Block) {
	if m := youtubePattern.FindStringSubmatch(block.File.URL); m != nil {
		fmt.Fprintf(&p.b, `<div class="video-embed"><iframe src="https://www.youtube.com/embed/%s" loading="lazy" allowfullscreen></iframe></div>`, attr(m[1]))
		return
	}
	fmt.Fprintf(&p.b, `<video controls src="%s"></video>`, attr(block.File.URL))
}

func (p *pass) fileLink(block notion.Block) {
	label := block.File.Name
	if label == "" {
		label = block.File.URL
	}
	fmt.Fprintf(&p.b, `<a class="file-attachment" href="%s" target="_blank" rel="noopener noreferrer">%s</a>`, attr(block.File.URL), esc(label))
}

// bookmark renders a preview card when the enricher attached metadata,
// otherwise a plain anchor.
func (p *pass) bookmark(block notion.Block) {
	u := block.Link.URL
	meta := block.LinkMeta
	if meta == nil || meta.Title == "" {
		label := u
		if len(block.Link.Caption) > 0 {
			label = notion.PlainText(block.Link.Caption)
		}
		fmt.Fprintf(&p.b, `<a class="bookmark" href="%s" target="_blank" rel="noopener noreferrer">%s</a>`, attr(u), esc(label))
		return
	}
	fmt.Fprintf(&p.b, `<a class="link-preview" href="%s" target="_blank" rel="noopener noreferrer">`, attr(u))
	p.b.WriteString(`<div class="link-preview-text">`)
	fmt.Fprintf(&p.b, `<div class="link-preview-title">%s</div>`, esc(meta.Title))
	if meta.Description != "" {
		fmt.Fprintf(&p.b, `<div class="link-preview-description">%s</div>`, esc(meta.Description))
	}
	p.b.WriteString(`<div class="link-preview-site">`)
	if meta.Favicon != "" {
		fmt.Fprintf(&p.b, `<img class="link-preview-favicon" src="%s" alt=""/>`, attr(meta.Favicon))
	}
	site := meta.SiteName
	if site == "" {
		site = u
	}
	p.b.WriteString(esc(site))
	p.b.WriteString("</div></div>")
	if meta.Image != "" {
		fmt.Fprintf(&p.b, `<img class="link-preview-image" src="%s" alt=""/>`, attr(meta.Image))
	}
	p.b.WriteString("</a>")
}

func (p *pass) table(block notion.Block) {
	rows := make([]notion.Block, 0, len(block.Children))
	for _, row := range block.Children {
		if row.Type == notion.BlockTableRow && row.TableRow != nil {
			rows = append(rows, row)
		}
	}
	p.b.WriteString("<table>")
	body := rows
	if block.Table.HasColumnHeader && len(rows) > 0 {
		p.b.WriteString("<thead><tr>")
		for _, cell := range rows[0].TableRow.Cells {
			p.b.WriteString("<th>")
			p.richText(cell)
			p.b.WriteString("</th>")
		}
		p.b.WriteString("</tr></thead>")
		body = rows[1:]
	}
	p.b.WriteString("<tbody>")
	for _, row := range body {
		p.b.WriteString("<tr>")
		for i, cell := range row.TableRow.Cells {
			tag := "td"
			if block.Table.HasRowHeader && i == 0 {
				tag = "th"
			}
			fmt.Fprintf(&p.b, "<%s>", tag)
			p.richText(cell)
			fmt.Fprintf(&p.b, "</%s>", tag)
		}
		p.b.WriteString("</tr>")
	}
	p.b.WriteString("</tbody></table>")
}

func (p *pass) linkToPage(block notion.Block) {
	id := strings.ReplaceAll(block.LinkToPage.PageID, "-", "")
	fmt.Fprintf(&p.b, `<a class="page-link" href="/%s">%s</a>`, attr(id), esc(id))
}

// richText renders inline runs with annotations nested in a fixed
// order, innermost first: code, bold, italic, strikethrough, underline,
// color, then the link wrapper.
func (p *pass) richText(runs []notion.RichText) {
	for _, run := range runs {
		if run.Type == "equation" {
			p.b.WriteString(`<span class="katex-render">` + esc(run.Expression) + `</span>`)
			continue
		}
		node := esc(run.PlainText)
		a := run.Annotations
		if a.Code {
			node = "<code>" + node + "</code>"
		}
		if a.Bold {
			node = "<strong>" + node + "</strong>"
		}
		if a.Italic {
			node = "<em>" + node + "</em>"
		}
		if a.Strikethrough {
			node = "<s>" + node + "</s>"
		}
		if a.Underline {
			node = "<u>" + node + "</u>"
		}
		if c := colorClass(a.Color); c != "" {
			node = fmt.Sprintf(`<span class="%s">%s</span>`, c, node)
		}
		if run.Href != "" {
			node = p.renderer.link(run.Href, node)
		}
		p.b.WriteString(node)
	}
}

// link keeps same-site navigation internal and opens everything else
// in a new tab.
func (r *Renderer) link(href, inner string) string {
	if strings.HasPrefix(href, "/") || (r.siteOrigin != "" && strings.HasPrefix(href, r.siteOrigin)) {
		href = strings.TrimPrefix(href, r.siteOrigin)
		if href == "" {
			href = "/"
		}
		return fmt.Sprintf(`<a href="%s">%s</a>`, attr(href), inner)
	}
	return fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener noreferrer">%s</a>`, attr(href), inner)
}

func colorClass(color string) string {
	if color == "" || color == "default" {
		return ""
	}
	if base, ok := strings.CutSuffix(color, "_background"); ok {
		return "notion-bg-" + base
	}
	return "notion-color-" + color
}

// imageAlt prefers the caption, then a humanized filename. Opaque
// generated filenames yield empty alt text rather than noise.
func imageAlt(file *notion.FilePayload) string {
	if text := notion.PlainText(file.Caption); text != "" {
		return text
	}
	u, err := url.Parse(file.URL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "" || name == "/" || name == "." {
		return ""
	}
	if _, err := uuid.Parse(name); err == nil {
		return ""
	}
	return strings.TrimSpace(altSeparators.Replace(name))
}

func esc(s string) string {
	return template.HTMLEscapeString(s)
}

func attr(s string) string {
	return template.HTMLEscapeString(s)
}
