// Package markdown converts HTML fragments and documents to CommonMark.
package markdown

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var skipped = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true,
	"template": true, "iframe": true, "svg": true,
}

var blockElements = map[string]bool{
	"html": true, "body": true, "p": true, "div": true, "section": true,
	"article": true, "main": true, "header": true, "footer": true, "nav": true,
	"aside": true, "figure": true, "table": true, "thead": true, "tbody": true,
	"tr": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "ul": true, "ol": true, "pre": true, "blockquote": true, "hr": true,
}

// Convert renders src as Markdown. Scripts, styles and the document head are dropped.
func Convert(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return strings.Join(blocks(doc), "\n\n"), nil
}

// blocks renders the children of n, grouping runs of inline content into paragraphs.
func blocks(n *html.Node) []string {
	var out []string
	var para strings.Builder

	flush := func() {
		if s := tidyParagraph(para.String()); s != "" {
			out = append(out, s)
		}
		para.Reset()
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && skipped[c.Data] {
			continue
		}
		if c.Type == html.ElementNode && blockElements[c.Data] {
			flush()
			if b := block(c); b != "" {
				out = append(out, b)
			}
			continue
		}
		para.WriteString(inline(c))
	}
	flush()
	return out
}

func block(n *html.Node) string {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := tidyParagraph(inlineChildren(n))
		if text == "" {
			return ""
		}
		level := int(n.Data[1] - '0')
		return strings.Repeat("#", level) + " " + strings.ReplaceAll(text, "\\\n", " ")
	case "ul", "ol":
		return list(n)
	case "pre":
		return fence(n)
	case "blockquote":
		return quote(strings.Join(blocks(n), "\n\n"))
	case "hr":
		return "---"
	default:
		return strings.Join(blocks(n), "\n\n")
	}
}

func list(n *html.Node) string {
	ordered := n.Data == "ol"
	num := 1
	if s, err := strconv.Atoi(attr(n, "start")); err == nil {
		num = s
	}

	var items []string
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		marker := "- "
		if ordered {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		body := strings.Join(blocks(li), "\n")
		items = append(items, indentAfterFirst(marker+body, len(marker)))
	}
	return strings.Join(items, "\n")
}

func fence(n *html.Node) string {
	lang := ""
	if c := n.FirstChild; c != nil && c.Type == html.ElementNode && c.Data == "code" {
		for _, cls := range strings.Fields(attr(c, "class")) {
			if l, ok := strings.CutPrefix(cls, "language-"); ok {
				lang = l
				break
			}
			if l, ok := strings.CutPrefix(cls, "lang-"); ok {
				lang = l
				break
			}
		}
	}
	code := strings.TrimRight(textContent(n), "\n")
	fenceMark := "```"
	for strings.Contains(code, fenceMark) {
		fenceMark += "`"
	}
	return fenceMark + lang + "\n" + code + "\n" + fenceMark
}

func quote(body string) string {
	if body == "" {
		return ""
	}
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + l
		}
	}
	return strings.Join(lines, "\n")
}

func inline(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return collapseSpace(n.Data)
	case html.ElementNode:
	default:
		return ""
	}

	if skipped[n.Data] {
		return ""
	}

	switch n.Data {
	case "strong", "b":
		return wrap(inlineChildren(n), "**")
	case "em", "i":
		return wrap(inlineChildren(n), "*")
	case "del", "s", "strike":
		return wrap(inlineChildren(n), "~~")
	case "code", "kbd", "samp":
		return codeSpan(textContent(n))
	case "br":
		return "\\\n"
	case "img":
		src := attr(n, "src")
		if src == "" {
			return ""
		}
		return "![" + attr(n, "alt") + "](" + src + titleSuffix(n) + ")"
	case "a":
		text := strings.TrimSpace(inlineChildren(n))
		href := attr(n, "href")
		if href == "" || text == "" {
			return text
		}
		return "[" + text + "](" + href + titleSuffix(n) + ")"
	case "td", "th":
		return inlineChildren(n) + " "
	default:
		return inlineChildren(n)
	}
}

func inlineChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(inline(c))
	}
	return b.String()
}

// wrap puts mark around the text, keeping surrounding spaces outside the markers.
func wrap(s, mark string) string {
	core := strings.Trim(s, " ")
	if core == "" {
		return s
	}
	lead := s[:strings.Index(s, core)]
	trail := s[len(lead)+len(core):]
	return lead + mark + core + mark + trail
}

func codeSpan(s string) string {
	s = collapseSpace(s)
	if !strings.Contains(s, "`") {
		return "`" + s + "`"
	}
	return "`` " + s + " ``"
}

func titleSuffix(n *html.Node) string {
	if t := attr(n, "title"); t != "" {
		return ` "` + strings.ReplaceAll(t, `"`, `\"`) + `"`
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// tidyParagraph trims every line of a paragraph and drops it when empty.
func tidyParagraph(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func indentAfterFirst(s string, width int) string {
	pad := strings.Repeat(" ", width)
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
