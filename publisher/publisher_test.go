package publisher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story_studio/generator"
)

const beatsHTML = "<p>1) Hook: a</p><p>2) Setup: b</p>"

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":         FormatMarkdown,
		"md":       FormatMarkdown,
		" HTML ":   FormatHTML,
		"txt":      FormatText,
		"paste":    FormatPaste,
		"markdown": FormatMarkdown,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestFromHTML(t *testing.T) {
	d := FromHTML("", " storm ", "", beatsHTML)
	assert.Equal(t, "storm", d.Title)
	assert.Equal(t, generator.ModeMemoryLane, d.Mode)
	assert.Equal(t, []string{"1) Hook: a", "2) Setup: b"}, d.Beats)

	assert.Equal(t, "Story outline", FromHTML("", "", generator.ModeDreamscape, "").Title)
}

func TestRenderMarkdownAndText(t *testing.T) {
	p := New(nil)
	d := FromHTML("", "storm", generator.ModeBiography, beatsHTML)

	md, err := p.Render(d, FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# storm\n\n_Theme: storm | Mode: Biography_\n\n1) Hook: a\n2) Setup: b\n", string(md))

	txt, err := p.Render(d, FormatText)
	require.NoError(t, err)
	assert.Equal(t, "storm\nTheme: storm\nMode: Biography\n\n1) Hook: a\n2) Setup: b\n", string(txt))
}

func TestTextDropsMarks(t *testing.T) {
	d := FromHTML("t", "", "", "<h2>Act one</h2><p><strong>Hook</strong> in snake_case <em>now</em></p>")
	assert.Equal(t, "t\n\nAct one\nHook in snake_case now\n", d.Text())
}

func TestRenderHTMLPage(t *testing.T) {
	d := FromHTML("Storm <Eye>", "storm", "", beatsHTML)
	page, err := New(nil).Render(d, FormatHTML)
	require.NoError(t, err)

	s := string(page)
	assert.Contains(t, s, "<!DOCTYPE html>")
	assert.Contains(t, s, "<title>Storm &lt;Eye&gt;</title>")
	assert.Contains(t, s, `<meta name="description" content="1) Hook: a 2) Setup: b">`)
	assert.Contains(t, s, "<ol>\n<li>Hook: a</li>\n<li>Setup: b</li>\n</ol>")
}

func TestRenderPasteFlattensStructure(t *testing.T) {
	d := FromHTML("", "storm", "", beatsHTML+"<ul><li>loose end</li></ul>")
	out, err := New(nil).Render(d, FormatPaste)
	require.NoError(t, err)

	s := string(out)
	assert.NotContains(t, s, "<ol>")
	assert.NotContains(t, s, "<ul>")
	assert.NotContains(t, s, "<h1>")
	assert.Contains(t, s, `<p style="font-size:24px;font-weight:700;margin:1em 0 0.6em;">storm</p>`)
	assert.Contains(t, s, "<p>1. Hook: a</p><p>2. Setup: b</p>")
	assert.Contains(t, s, "<p>• loose end</p>")
}

func TestFlattenListsNumbersEachList(t *testing.T) {
	in := "<ol><li>a</li><li>b</li></ol><ul><li>x</li></ul><ol start=\"3\"><li>c</li></ol><ul></ul>"
	assert.Equal(t, "<p>1. a</p><p>2. b</p><p>• x</p><p>1. c</p><ul></ul>", flattenLists(in))
	assert.Equal(t, `<p style="font-size:22px;font-weight:700;margin:1em 0 0.6em;">Act one</p>`, convertHeadings("<h2 id=\"a\"> Act one </h2>"))
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := New(nil).Render(Document{}, Format("pdf"))
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	p := New(nil)
	d := FromHTML("The Storm's Eye!", "storm", "", beatsHTML)

	path, err := p.WriteFile(d, FormatMarkdown, filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "the-storm-s-eye.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1) Hook: a\n2) Setup: b")

	_, err = p.WriteFile(FromHTML("x", "", "", ""), FormatText, dir)
	assert.Error(t, err)
}

func TestDefaultDigest(t *testing.T) {
	assert.Equal(t, "a b", defaultDigest(" a \n b ", 10))
	assert.Equal(t, "héllo", defaultDigest("héllo world", 5))
}
