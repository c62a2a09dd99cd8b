// Package outline holds the client side of the studio: converting model text
// to editor HTML and back, and the state behind create, revise and undo.
package outline

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	boldRe       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	closeLiRe    = regexp.MustCompile(`(?i)</li>\s*`)
	closePRe     = regexp.MustCompile(`(?i)</(?:p|div)>\s*`)
	brRe         = regexp.MustCompile(`(?i)<br\s*/?>`)
	openDivRe    = regexp.MustCompile(`(?i)([^\n])<div[^>]*>`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
	htmlEscaper  = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	headingRe    = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	listRe       = regexp.MustCompile(`(?is)<(ol|ul)[^>]*>(.*?)</(?:ol|ul)>`)
	itemRe       = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	strongRe     = regexp.MustCompile(`(?is)<(?:strong|b)(?:\s[^>]*)?>(.*?)</(?:strong|b)>`)
	emphasisRe   = regexp.MustCompile(`(?is)<(?:em|i)(?:\s[^>]*)?>(.*?)</(?:em|i)>`)
	innerBlockRe = regexp.MustCompile(`(?i)</?p[^>]*>`)
)

// StripBold removes markdown bold markers, keeping the enclosed text.
func StripBold(text string) string {
	return boldRe.ReplaceAllString(text, "$1")
}

// ToHTML turns model output into editor HTML: one paragraph per non-blank
// line, bold markers removed, &, < and > escaped.
func ToHTML(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(StripBold(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(htmlEscaper.Replace(line))
		b.WriteString("</p>")
	}
	return b.String()
}

// ToPlainText flattens editor HTML into the text sent to the model. Paragraph,
// div and list item ends and <br> become newlines, other tags are dropped and
// entities decoded. Formatting beyond line structure is lost.
func ToPlainText(s string) string {
	s = closeLiRe.ReplaceAllString(s, "\n")
	s = closePRe.ReplaceAllString(s, "\n")
	s = brRe.ReplaceAllString(s, "\n")
	s = openDivRe.ReplaceAllString(s, "$1\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ToMarkdown converts editor HTML to Markdown, keeping headings, lists, bold
// and italic that ToPlainText would drop.
func ToMarkdown(s string) string {
	s = strongRe.ReplaceAllString(s, "**$1**")
	s = emphasisRe.ReplaceAllString(s, "_${1}_")
	s = listRe.ReplaceAllStringFunc(s, func(block string) string {
		parts := listRe.FindStringSubmatch(block)
		ordered := strings.EqualFold(parts[1], "ol")
		var b strings.Builder
		for i, item := range itemRe.FindAllStringSubmatch(parts[2], -1) {
			text := strings.TrimSpace(innerBlockRe.ReplaceAllString(item[1], " "))
			if ordered {
				b.WriteString(fmt.Sprintf("%d. %s\n", i+1, text))
			} else {
				b.WriteString("- " + text + "\n")
			}
		}
		return b.String() + "\n"
	})
	s = headingRe.ReplaceAllStringFunc(s, func(block string) string {
		parts := headingRe.FindStringSubmatch(block)
		return strings.Repeat("#", int(parts[1][0]-'0')) + " " + strings.TrimSpace(parts[2]) + "\n\n"
	})
	s = closePRe.ReplaceAllString(s, "\n\n")
	s = brRe.ReplaceAllString(s, "\n")
	s = openDivRe.ReplaceAllString(s, "$1\n\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
