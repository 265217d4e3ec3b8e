// Package sanitize reduces user-supplied HTML to a small inline allow-list.
package sanitize

import (
	"strings"

	"golang.org/x/net/html"
)

// allowedTags may appear in output. All attributes are dropped.
var allowedTags = map[string]struct{}{
	"b": {}, "i": {}, "strong": {}, "em": {}, "u": {}, "a": {}, "br": {}, "p": {},
}

// droppedContent are elements whose text is discarded along with the tag.
var droppedContent = map[string]struct{}{
	"script": {}, "style": {}, "textarea": {}, "noscript": {}, "iframe": {}, "object": {},
}

// HTML keeps allowed tags without attributes, strips every other tag while
// keeping its text, and escapes all text content.
func HTML(in string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(in))
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; either way the input is consumed
			return b.String()

		case html.TextToken:
			if skip == 0 {
				b.WriteString(html.EscapeString(string(z.Text())))
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if _, ok := droppedContent[tag]; ok {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			if _, ok := allowedTags[tag]; ok && skip == 0 {
				b.WriteString("<" + tag + ">")
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if _, ok := droppedContent[tag]; ok {
				if skip > 0 {
					skip--
				}
				continue
			}
			if _, ok := allowedTags[tag]; ok && skip == 0 && tag != "br" {
				b.WriteString("</" + tag + ">")
			}
		}
	}
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
