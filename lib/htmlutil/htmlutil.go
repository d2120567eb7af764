package htmlutil

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// NormalizeText drops non printable characters, trims the string and
// collapses inner runs of whitespace into a single space.
func NormalizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// XPath returns the absolute XPath of an element node in the form
// `/html[1]/body[1]/div[2]/a[1]`, positions count siblings with the same tag.
// It returns "" for anything that is not an element attached to a document.
func XPath(node *html.Node) string {
	if node == nil || node.Type != html.ElementNode {
		return ""
	}

	var segments []string
	for n := node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		position := 1
		for sibling := n.PrevSibling; sibling != nil; sibling = sibling.PrevSibling {
			if sibling.Type == html.ElementNode && sibling.Data == n.Data {
				position++
			}
		}
		segments = append(segments, fmt.Sprintf("%s[%d]", n.Data, position))
		if n.Parent == nil || n.Parent.Type == html.DocumentNode {
			break
		}
	}

	var out strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		out.WriteString("/")
		out.WriteString(segments[i])
	}
	return out.String()
}
