package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"beats", "1) Hook\n2) Setup", "<p>1) Hook</p><p>2) Setup</p>"},
		{"bold stripped", "**Hi** there", "<p>Hi there</p>"},
		{"several bold runs", "1) **Hook**: a **storm**", "<p>1) Hook: a storm</p>"},
		{"blank lines dropped", "\n  1) A  \n\n\n2) B\n", "<p>1) A</p><p>2) B</p>"},
		{"escaped", "a < b & c > d", "<p>a &lt; b &amp; c &gt; d</p>"},
		{"empty", "  \n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTML(tt.in))
		})
	}
}

func TestToPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraphs", "<p>A</p><p>B</p>", "A\nB"},
		{"list items", "<ul><li>A</li>\n<li>B</li></ul>", "A\nB"},
		{"line breaks", "<p>A<br>B<br/>C<BR />D</p>", "A\nB\nC\nD"},
		{"inline tags dropped", "<p><strong>1)</strong> <em>Hook</em></p>", "1) Hook"},
		{"blank runs collapsed", "A<br><br><br><br>B", "A\n\nB"},
		{"entities decoded", "<p>a &amp; b &lt;c&gt;</p>", "a & b <c>"},
		{"empty document", "<p></p>", ""},
		{"div lines", "1) Hook<div>2) Setup</div><div>3) Complication</div>", "1) Hook\n2) Setup\n3) Complication"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPlainText(tt.in))
		})
	}
}

func TestRoundTripDoesNotDoubleEscape(t *testing.T) {
	first := ToHTML("1) Salt & <iron>")
	assert.Equal(t, first, ToHTML(ToPlainText(first)))
}

func TestRoundTripDropsFormatting(t *testing.T) {
	html := "<h2>Act one</h2><p><strong>1)</strong> Hook</p>"
	assert.Equal(t, "<p>Act one1) Hook</p>", ToHTML(ToPlainText(html)))
}

func TestToMarkdown(t *testing.T) {
	html := "<h1>Title</h1><p><strong>1)</strong> Hook</p><ol><li><p>A</p></li><li>B</li></ol><p><em>x</em></p><ul><li>loose</li></ul>"
	assert.Equal(t, "# Title\n\n**1)** Hook\n\n1. A\n2. B\n\n_x_\n\n- loose", ToMarkdown(html))
}

func TestStripBold(t *testing.T) {
	assert.Equal(t, "Hi there **", StripBold("**Hi** there **"))
}
