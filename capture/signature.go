package capture

import (
	"strings"

	"chimbori.dev/scrollshot/core"
	"golang.org/x/net/html"
)

// Signature fingerprints a page source. For pages with a DOM, the markup is first normalised by dropping
// script, style & noscript content, so that timers and injected analytics do not defeat the comparison.
// Native view hierarchies are hashed verbatim. An empty source has an empty signature.
func Signature(source string, normalise bool) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	if normalise {
		source = normaliseHTML(source)
	}
	return core.SHA256(source)
}

func normaliseHTML(source string) string {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return source
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
			sb.WriteByte('<')
			sb.WriteString(n.Data)
			for _, a := range n.Attr {
				sb.WriteByte(' ')
				sb.WriteString(a.Key)
				sb.WriteString(`="`)
				sb.WriteString(a.Val)
				sb.WriteByte('"')
			}
			sb.WriteByte('>')
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}
