package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "headings and emphasis",
			in:   `<h1>Title</h1><p>Hello <strong>world</strong> and <em>you</em>.</p><h3>Sub</h3>`,
			want: "# Title\n\nHello **world** and *you*.\n\n### Sub",
		},
		{
			name: "emphasis keeps spaces outside markers",
			in:   `<p>a<b> bold </b>b</p>`,
			want: "a **bold** b",
		},
		{
			name: "links and images",
			in:   `<p><a href="https://example.com" title="Ex">site</a> <img src="a.png" alt="A"></p>`,
			want: `[site](https://example.com "Ex") ![A](a.png)`,
		},
		{
			name: "anchor without href",
			in:   `<p><a name="top">Top</a></p>`,
			want: "Top",
		},
		{
			name: "nested and ordered lists",
			in:   `<ul><li>One</li><li>Two<ul><li>Inner</li></ul></li></ul><ol start="3"><li>Three</li><li>Four</li></ol>`,
			want: "- One\n- Two\n  - Inner\n\n3. Three\n4. Four",
		},
		{
			name: "code",
			in:   "<pre><code class=\"language-go\">fmt.Println(\"hi\")\n</code></pre><p>Run <code>go test</code></p>",
			want: "```go\nfmt.Println(\"hi\")\n```\n\nRun `go test`",
		},
		{
			name: "inline code containing a backtick",
			in:   "<p><code>a`b</code></p>",
			want: "`` a`b ``",
		},
		{
			name: "blockquote",
			in:   `<blockquote><p>Quote</p><p>Second</p></blockquote>`,
			want: "> Quote\n>\n> Second",
		},
		{
			name: "line break, rule and dropped script",
			in:   `<p>a<br>b</p><hr><script>alert(1)</script><style>p{}</style><p>end</p>`,
			want: "a\\\nb\n\n---\n\nend",
		},
		{
			name: "whitespace collapsed",
			in:   "<p>  lots   of\n   space </p>\n\n<div> <span>in</span>  div </div>",
			want: "lots of space\n\nin div",
		},
		{
			name: "full document drops head",
			in:   `<!doctype html><html><head><title>T</title></head><body><h2>Body</h2></body></html>`,
			want: "## Body",
		},
		{
			name: "strikethrough",
			in:   `<p><del>old</del> new</p>`,
			want: "~~old~~ new",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
