package richtext

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type blockKind int

const (
	paragraph blockKind = iota
	heading1
	heading2
	heading3
	bulletItem
	orderedItem
)

// block is one line of the document. text is inline Markdown: ** for bold,
// _ for italic, backslash escapes for literal punctuation.
type block struct {
	kind blockKind
	text string
}

// Document is a small block editor: paragraphs, three heading levels and
// bullet/ordered list items, with bold and italic inline marks. The current
// selection is the block under the cursor.
//
// Text and SetText expose the document as one line per block in a Markdown
// dialect where only "N. " starts an ordered item, so outline beats written
// as "1) Hook" stay paragraphs.
type Document struct {
	blocks []block
	cursor int
}

func NewDocument() *Document {
	return &Document{}
}

var (
	headingLineRe = regexp.MustCompile(`^(#{1,3}) +(.*)$`)
	bulletLineRe  = regexp.MustCompile(`^[-*+] +(.*)$`)
	orderedLineRe = regexp.MustCompile(`^\d+\. +(.*)$`)
	escapedNumRe  = regexp.MustCompile(`^(\d+)\\\.`)
	plainNumRe    = regexp.MustCompile(`^(\d+)([.)])`)
	inlineEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `_`, `\_`, "`", "\\`", `[`, `\[`, `]`, `\]`, `<`, `\<`)
)

// Cursor returns the index of the selected block.
func (d *Document) Cursor() int { return d.cursor }

// SetCursor selects block i, clamped to the document.
func (d *Document) SetCursor(i int) {
	switch {
	case i < 0 || len(d.blocks) == 0:
		d.cursor = 0
	case i >= len(d.blocks):
		d.cursor = len(d.blocks) - 1
	default:
		d.cursor = i
	}
}

// Len is the number of blocks.
func (d *Document) Len() int { return len(d.blocks) }

// Text renders the document as editable source, one block per line.
func (d *Document) Text() string {
	lines := make([]string, 0, len(d.blocks))
	n := 0
	for _, b := range d.blocks {
		if b.kind == orderedItem {
			n++
		} else {
			n = 0
		}
		switch b.kind {
		case heading1:
			lines = append(lines, "# "+b.text)
		case heading2:
			lines = append(lines, "## "+b.text)
		case heading3:
			lines = append(lines, "### "+b.text)
		case bulletItem:
			lines = append(lines, "- "+b.text)
		case orderedItem:
			lines = append(lines, fmt.Sprintf("%d. %s", n, b.text))
		default:
			lines = append(lines, displayParagraph(b.text))
		}
	}
	return strings.Join(lines, "\n")
}

// SetText replaces the document from source produced by Text or typed by
// the user. Blank lines are dropped. The cursor is kept where possible.
func (d *Document) SetText(text string) {
	d.blocks = d.blocks[:0]
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		d.blocks = append(d.blocks, parseLine(line))
	}
	d.SetCursor(d.cursor)
}

func parseLine(line string) block {
	if m := headingLineRe.FindStringSubmatch(line); m != nil {
		return block{kind: heading1 + blockKind(len(m[1])-1), text: m[2]}
	}
	if m := bulletLineRe.FindStringSubmatch(line); m != nil {
		return block{kind: bulletItem, text: m[1]}
	}
	if m := orderedLineRe.FindStringSubmatch(line); m != nil {
		return block{kind: orderedItem, text: m[1]}
	}
	if m := escapedNumRe.FindStringSubmatch(line); m != nil {
		line = m[1] + "." + line[len(m[0]):]
	}
	return block{kind: paragraph, text: line}
}

// HTML renders the document through goldmark.
func (d *Document) HTML() string {
	if len(d.blocks) == 0 {
		return EmptyDocument
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(d.markdown()), &buf); err != nil {
		return EmptyDocument
	}
	out := strings.ReplaceAll(strings.TrimSpace(buf.String()), ">\n<", "><")
	if out == "" {
		return EmptyDocument
	}
	return out
}

func (d *Document) markdown() string {
	var sb strings.Builder
	n := 0
	for i, b := range d.blocks {
		if i > 0 {
			prev := d.blocks[i-1].kind
			if (prev == bulletItem || prev == orderedItem) && prev == b.kind {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		if b.kind == orderedItem {
			n++
		} else {
			n = 0
		}
		text := escapeBlockStart(b.text)
		switch b.kind {
		case heading1:
			sb.WriteString("# " + text)
		case heading2:
			sb.WriteString("## " + text)
		case heading3:
			sb.WriteString("### " + text)
		case bulletItem:
			sb.WriteString("- " + text)
		case orderedItem:
			sb.WriteString(fmt.Sprintf("%d. %s", n, text))
		default:
			sb.WriteString(text)
		}
	}
	return sb.String()
}

// displayParagraph escapes paragraph text that SetText would otherwise read
// as a heading or list item.
func displayParagraph(text string) string {
	if m := plainNumRe.FindStringSubmatch(text); m != nil && m[2] == "." && orderedLineRe.MatchString(text) {
		return m[1] + `\.` + text[len(m[0]):]
	}
	if headingLineRe.MatchString(text) || bulletLineRe.MatchString(text) {
		return `\` + text
	}
	return text
}

var (
	atxStartRe     = regexp.MustCompile(`^#{1,6}(\s|$)`)
	bulletStartRe  = regexp.MustCompile(`^[-+*](\s|$)`)
	orderedStartRe = regexp.MustCompile(`^(\d{1,9})([.)])(\s|$)`)
)

// escapeBlockStart keeps paragraph text from being read by goldmark as a
// heading, list item, quote, fence, thematic break or raw HTML block.
func escapeBlockStart(text string) string {
	if m := orderedStartRe.FindStringSubmatch(text); m != nil {
		return m[1] + `\` + text[len(m[1]):]
	}
	switch {
	case text == "":
		return text
	case atxStartRe.MatchString(text),
		bulletStartRe.MatchString(text),
		strings.HasPrefix(text, ">"),
		strings.HasPrefix(text, "<"),
		strings.HasPrefix(text, "```"),
		strings.HasPrefix(text, "~~~"),
		isThematicBreak(text):
		return `\` + text
	}
	return text
}

func isThematicBreak(text string) bool {
	compact := strings.ReplaceAll(text, " ", "")
	if len(compact) < 3 {
		return false
	}
	return strings.Count(compact, compact[:1]) == len(compact) && strings.ContainsAny(compact[:1], "-*_")
}

// SetContent replaces the document with parsed HTML. Empty input clears it.
func (d *Document) SetContent(html string) {
	d.blocks = d.blocks[:0]
	d.cursor = 0
	if strings.TrimSpace(html) == "" {
		return
	}
	ctx := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := xhtml.ParseFragment(strings.NewReader(html), ctx)
	if err != nil {
		d.blocks = append(d.blocks, block{kind: paragraph, text: inlineEscaper.Replace(html)})
		return
	}
	for _, n := range nodes {
		d.collect(n)
	}
}

func (d *Document) collect(n *xhtml.Node) {
	switch n.Type {
	case xhtml.TextNode:
		d.add(paragraph, inlineEscaper.Replace(collapseSpace(n.Data)))
		return
	case xhtml.ElementNode:
	default:
		return
	}
	switch n.DataAtom {
	case atom.P:
		d.add(paragraph, inline(n))
	case atom.H1:
		d.add(heading1, inline(n))
	case atom.H2:
		d.add(heading2, inline(n))
	case atom.H3, atom.H4, atom.H5, atom.H6:
		d.add(heading3, inline(n))
	case atom.Ul, atom.Ol:
		kind := bulletItem
		if n.DataAtom == atom.Ol {
			kind = orderedItem
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xhtml.ElementNode && c.DataAtom == atom.Li {
				d.add(kind, inline(c))
			}
		}
	case atom.Br:
	case atom.Strong, atom.B, atom.Em, atom.I, atom.Span, atom.A, atom.Code:
		d.add(paragraph, inline(n))
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			d.collect(c)
		}
	}
}

func (d *Document) add(kind blockKind, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	d.blocks = append(d.blocks, block{kind: kind, text: text})
}

// inline flattens n's children into inline Markdown.
func inline(n *xhtml.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xhtml.TextNode:
			sb.WriteString(inlineEscaper.Replace(collapseSpace(c.Data)))
		case xhtml.ElementNode:
			inner := inline(c)
			switch c.DataAtom {
			case atom.Strong, atom.B:
				sb.WriteString(wrapMark(inner, "**"))
			case atom.Em, atom.I:
				sb.WriteString(wrapMark(inner, "_"))
			case atom.Br:
				sb.WriteString(" ")
			case atom.P, atom.Div, atom.Ul, atom.Ol, atom.Li:
				sb.WriteString(" " + inner + " ")
			default:
				sb.WriteString(inner)
			}
		}
	}
	return collapseSpace(sb.String())
}

func wrapMark(text, mark string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	return mark + trimmed + mark
}

func collapseSpace(s string) string {
	if strings.TrimSpace(s) == "" {
		if s == "" {
			return ""
		}
		return " "
	}
	lead := s[0] == ' ' || s[0] == '\n' || s[0] == '\t'
	last := s[len(s)-1]
	trail := last == ' ' || last == '\n' || last == '\t'
	out := strings.Join(strings.Fields(s), " ")
	if lead {
		out = " " + out
	}
	if trail {
		out += " "
	}
	return out
}

// Exec applies cmd to the block under the cursor.
func (d *Document) Exec(cmd Command) bool {
	if len(d.blocks) == 0 {
		return false
	}
	b := &d.blocks[d.cursor]
	before := *b
	switch cmd {
	case Bold:
		b.text = toggleMark(b.text, "**")
	case Italic:
		b.text = toggleMark(b.text, "_")
	case Heading1:
		b.kind = toggleKind(b.kind, heading1)
	case Heading2:
		b.kind = toggleKind(b.kind, heading2)
	case BulletList:
		b.kind = toggleKind(b.kind, bulletItem)
	case OrderedList:
		b.kind = toggleKind(b.kind, orderedItem)
	case ClearFormatting:
		b.kind = paragraph
		b.text = removeMark(removeMark(b.text, "**"), "_")
	default:
		return false
	}
	return *b != before
}

func toggleKind(current, target blockKind) blockKind {
	if current == target {
		return paragraph
	}
	return target
}

// toggleMark removes mark when it wraps the whole text, otherwise wraps the
// whole text in it, dropping partial runs of the same mark.
func toggleMark(text, mark string) string {
	if len(text) >= 2*len(mark) &&
		strings.HasPrefix(text, mark) &&
		strings.HasSuffix(text, mark) &&
		!strings.HasSuffix(text, `\`+mark) {
		inner := text[len(mark) : len(text)-len(mark)]
		if !strings.Contains(removeEscapes(inner), mark) {
			return inner
		}
	}
	return mark + removeMark(text, mark) + mark
}

// removeMark deletes unescaped occurrences of mark.
func removeMark(text, mark string) string {
	var sb strings.Builder
	for i := 0; i < len(text); {
		switch {
		case text[i] == '\\' && i+1 < len(text):
			sb.WriteString(text[i : i+2])
			i += 2
		case strings.HasPrefix(text[i:], mark):
			i += len(mark)
		default:
			sb.WriteByte(text[i])
			i++
		}
	}
	return sb.String()
}

// removeEscapes drops escaped characters so marks can be searched for.
func removeEscapes(text string) string {
	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] == '\\' && i+1 < len(text) {
			i++
			continue
		}
		sb.WriteByte(text[i])
	}
	return sb.String()
}
