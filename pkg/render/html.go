package render

import (
	"bytes"
	"html"
	"strconv"
	"strings"

	"github.com/russross/blackfriday"
)

const extensions = blackfriday.EXTENSION_NO_INTRA_EMPHASIS |
	blackfriday.EXTENSION_FENCED_CODE |
	blackfriday.EXTENSION_AUTOLINK |
	blackfriday.EXTENSION_STRIKETHROUGH |
	blackfriday.EXTENSION_SPACE_HEADERS |
	blackfriday.EXTENSION_HARD_LINE_BREAK

// ToHTML converts model output written in Markdown into the HTML subset
// accepted by the Telegram Bot API.
func ToHTML(markdown string) string {
	r := &telegramRenderer{Renderer: blackfriday.HtmlRenderer(0, "", "")}
	out := blackfriday.Markdown([]byte(markdown), r, extensions)
	return strings.TrimSpace(string(out))
}

// telegramRenderer replaces every block element Telegram rejects
// (paragraphs, headers, lists, tables) with plain text layout.
type telegramRenderer struct {
	blackfriday.Renderer

	// lists holds one counter per open list, -1 for unordered ones.
	lists []int
}

func (r *telegramRenderer) Paragraph(out *bytes.Buffer, text func() bool) {
	marker := out.Len()
	if !text() {
		out.Truncate(marker)
		return
	}
	out.WriteString("\n\n")
}

func (r *telegramRenderer) Header(out *bytes.Buffer, text func() bool, _ int, _ string) {
	marker := out.Len()
	out.WriteString("<b>")
	if !text() {
		out.Truncate(marker)
		return
	}
	out.WriteString("</b>\n\n")
}

func (r *telegramRenderer) BlockCode(out *bytes.Buffer, text []byte, _ string) {
	out.WriteString("<pre>")
	out.WriteString(html.EscapeString(strings.TrimRight(string(text), "\n")))
	out.WriteString("</pre>\n\n")
}

func (r *telegramRenderer) BlockQuote(out *bytes.Buffer, text []byte) {
	out.WriteString("<blockquote>")
	out.Write(bytes.TrimSpace(text))
	out.WriteString("</blockquote>\n\n")
}

func (r *telegramRenderer) BlockHtml(out *bytes.Buffer, text []byte) {
	out.WriteString(html.EscapeString(string(text)))
	out.WriteString("\n\n")
}

func (r *telegramRenderer) HRule(out *bytes.Buffer) {
	out.WriteString("——————\n\n")
}

func (r *telegramRenderer) List(out *bytes.Buffer, text func() bool, flags int) {
	counter := -1
	if flags&blackfriday.LIST_TYPE_ORDERED != 0 {
		counter = 0
	}
	r.lists = append(r.lists, counter)
	defer func() { r.lists = r.lists[:len(r.lists)-1] }()

	marker := out.Len()
	if !text() {
		out.Truncate(marker)
		return
	}
	out.WriteString("\n")
}

func (r *telegramRenderer) ListItem(out *bytes.Buffer, text []byte, _ int) {
	bullet := "• "
	if n := len(r.lists); n > 0 && r.lists[n-1] >= 0 {
		r.lists[n-1]++
		bullet = strconv.Itoa(r.lists[n-1]) + ". "
	}
	out.WriteString(bullet)
	out.Write(bytes.TrimSpace(text))
	out.WriteString("\n")
}

func (r *telegramRenderer) Table(out *bytes.Buffer, header []byte, body []byte, _ []int) {
	out.Write(header)
	out.Write(body)
	out.WriteString("\n")
}

func (r *telegramRenderer) TableRow(out *bytes.Buffer, text []byte) {
	out.Write(bytes.TrimSuffix(bytes.TrimSpace(text), []byte(" |")))
	out.WriteString("\n")
}

func (r *telegramRenderer) TableHeaderCell(out *bytes.Buffer, text []byte, _ int) {
	out.WriteString("<b>")
	out.Write(text)
	out.WriteString("</b> | ")
}

func (r *telegramRenderer) TableCell(out *bytes.Buffer, text []byte, _ int) {
	out.Write(text)
	out.WriteString(" | ")
}

func (r *telegramRenderer) LineBreak(out *bytes.Buffer) {
	out.WriteString("\n")
}

func (r *telegramRenderer) Link(out *bytes.Buffer, link []byte, _ []byte, content []byte) {
	out.WriteString(`<a href="`)
	out.WriteString(html.EscapeString(string(link)))
	out.WriteString(`">`)
	out.Write(content)
	out.WriteString("</a>")
}

func (r *telegramRenderer) AutoLink(out *bytes.Buffer, link []byte, _ int) {
	escaped := html.EscapeString(string(link))
	out.WriteString(`<a href="` + escaped + `">` + escaped + "</a>")
}

func (r *telegramRenderer) Image(out *bytes.Buffer, link []byte, _ []byte, alt []byte) {
	if len(alt) == 0 {
		alt = link
	}
	r.Link(out, link, nil, []byte(html.EscapeString(string(alt))))
}

func (r *telegramRenderer) TripleEmphasis(out *bytes.Buffer, text []byte) {
	out.WriteString("<b><i>")
	out.Write(text)
	out.WriteString("</i></b>")
}

func (r *telegramRenderer) RawHtmlTag(out *bytes.Buffer, tag []byte) {
	out.WriteString(html.EscapeString(string(tag)))
}
