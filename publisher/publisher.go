package publisher

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"story_studio/generator"
	"story_studio/outline"
)

// Format is an export target.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	// FormatPaste is HTML without list or heading tags, for editors that
	// drop them on paste.
	FormatPaste Format = "paste"
)

var formatAliases = map[string]Format{
	"":         FormatMarkdown,
	"md":       FormatMarkdown,
	"markdown": FormatMarkdown,
	"txt":      FormatText,
	"text":     FormatText,
	"html":     FormatHTML,
	"paste":    FormatPaste,
}

func ParseFormat(name string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want text, markdown, html or paste)", name)
}

func (f Format) ContentType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/html; charset=utf-8"
	}
}

func (f Format) Extension() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	default:
		return ".html"
	}
}

// Document is an outline ready for export. Beats hold one Markdown line each.
type Document struct {
	Title string
	Theme string
	Mode  generator.Mode
	Beats []string
}

// FromHTML builds a Document from editor HTML. A blank title falls back to
// the theme.
func FromHTML(title, theme string, mode generator.Mode, html string) Document {
	title = strings.TrimSpace(title)
	theme = strings.TrimSpace(theme)
	if title == "" {
		title = theme
	}
	if title == "" {
		title = "Story outline"
	}
	var beats []string
	for _, line := range strings.Split(outline.ToMarkdown(html), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			beats = append(beats, line)
		}
	}
	return Document{Title: title, Theme: theme, Mode: mode.OrDefault(), Beats: beats}
}

// Filename is a file-system safe name for the document in format f.
func (d Document) Filename(f Format) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(d.Title), "-"), "-")
	if slug == "" {
		slug = "outline"
	}
	return slug + f.Extension()
}

var (
	slugRe        = regexp.MustCompile(`[^a-z0-9]+`)
	listBeatRe    = regexp.MustCompile(`^(\d+[.)]|[-*+])\s`)
	headingMarkRe = regexp.MustCompile(`^#{1,6}\s+`)
	strongMarkRe  = regexp.MustCompile(`\*\*(.*?)\*\*`)
	emMarkRe      = regexp.MustCompile(`(^|\W)_([^_]+)_(\W|$)`)
)

// Markdown renders d as a Markdown document. Consecutive numbered or bulleted
// beats stay on adjacent lines so they form one tight list.
func (d Document) Markdown() string {
	var b strings.Builder
	b.WriteString("# " + d.Title + "\n\n")
	if d.Theme != "" {
		b.WriteString(fmt.Sprintf("_Theme: %s | Mode: %s_\n\n", d.Theme, d.Mode))
	}
	for i, beat := range d.Beats {
		if i > 0 {
			if listBeatRe.MatchString(beat) && listBeatRe.MatchString(d.Beats[i-1]) {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(beat)
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// Text renders d without markup.
func (d Document) Text() string {
	var b strings.Builder
	b.WriteString(d.Title + "\n")
	if d.Theme != "" {
		b.WriteString(fmt.Sprintf("Theme: %s\nMode: %s\n", d.Theme, d.Mode))
	}
	b.WriteString("\n")
	for _, beat := range d.Beats {
		beat = headingMarkRe.ReplaceAllString(beat, "")
		beat = strongMarkRe.ReplaceAllString(beat, "$1")
		beat = emMarkRe.ReplaceAllString(beat, "$1$2$3")
		b.WriteString(beat + "\n")
	}
	return b.String()
}

// Publisher renders outlines for download and writes them to disk.
type Publisher struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger}
}

// Render returns d in format f.
func (p *Publisher) Render(d Document, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(d.Text()), nil
	case FormatMarkdown:
		return []byte(d.Markdown()), nil
	case FormatHTML:
		body, err := mdToHTML(d.Markdown())
		if err != nil {
			return nil, err
		}
		return renderPage(d, body)
	case FormatPaste:
		body, err := mdToHTML(d.Markdown())
		if err != nil {
			return nil, err
		}
		p.logger.Debug("normalized html for paste", zap.Int("beats", len(d.Beats)))
		return []byte(normalizeForPaste(body)), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
}

// WriteFile renders d into dir and returns the written path.
func (p *Publisher) WriteFile(d Document, f Format, dir string) (string, error) {
	if len(d.Beats) == 0 {
		return "", errors.New("outline is empty")
	}
	data, err := p.Render(d, f)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, d.Filename(f))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	p.logger.Info("outline exported", zap.String("path", path), zap.String("format", string(f)))
	return path, nil
}

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="description" content="{{.Digest}}">
<title>{{.Title}}</title>
<style>body{font-family:Georgia,serif;max-width:42rem;margin:2rem auto;padding:0 1rem;line-height:1.6}</style>
</head>
<body>
{{.Body}}</body>
</html>
`))

func renderPage(d Document, body string) ([]byte, error) {
	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, struct {
		Title  string
		Digest string
		Body   template.HTML
	}{
		Title:  d.Title,
		Digest: defaultDigest(strings.Join(d.Beats, " "), 120),
		Body:   template.HTML(body),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	pasteListRe    = regexp.MustCompile(`(?s)<(ol|ul)[^>]*>(.*?)</(?:ol|ul)>`)
	pasteItemRe    = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)
	pasteHeadingRe = regexp.MustCompile(`(?s)<h([1-6])[^>]*>(.*?)</h[1-6]>`)

	headingSizes = map[string]string{
		"1": "24px",
		"2": "22px",
		"3": "20px",
		"4": "18px",
		"5": "16px",
		"6": "15px",
	}
)

// flattenLists turns list items into numbered or bulleted paragraphs so
// pasted outlines keep their order when the target strips list tags.
func flattenLists(html string) string {
	return pasteListRe.ReplaceAllStringFunc(html, func(block string) string {
		parts := pasteListRe.FindStringSubmatch(block)
		items := pasteItemRe.FindAllStringSubmatch(parts[2], -1)
		if len(items) == 0 {
			return block
		}
		ordered := parts[1] == "ol"
		var b strings.Builder
		for i, item := range items {
			text := strings.TrimSpace(item[1])
			if ordered {
				fmt.Fprintf(&b, "<p>%d. %s</p>", i+1, text)
			} else {
				fmt.Fprintf(&b, "<p>• %s</p>", text)
			}
		}
		return b.String()
	})
}

// convertHeadings restyles headings as bold paragraphs sized by level.
func convertHeadings(html string) string {
	return pasteHeadingRe.ReplaceAllStringFunc(html, func(block string) string {
		parts := pasteHeadingRe.FindStringSubmatch(block)
		size := headingSizes[parts[1]]
		if size == "" {
			size = "18px"
		}
		text := strings.TrimSpace(parts[2])
		return fmt.Sprintf(`<p style="font-size:%s;font-weight:700;margin:1em 0 0.6em;">%s</p>`, size, text)
	})
}

func normalizeForPaste(html string) string {
	html = convertHeadings(html)
	html = flattenLists(html)
	return html
}

func defaultDigest(md string, limit int) string {
	compact := strings.Fields(md)
	joined := []rune(strings.Join(compact, " "))
	if len(joined) <= limit {
		return string(joined)
	}
	return string(joined[:limit])
}
