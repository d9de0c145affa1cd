package dom

import (
	"reflect"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Element is the minimal view of a DOM element the locator generators and
// the describer need. Two sources implement it: parsed HTML trees (tests,
// offline fixtures) and snapshots shipped from a live page.
type Element interface {
	TagName() string
	Attr(name string) (string, bool)
	// ClassName returns false when the element's class is not a plain
	// string, as with SVG elements whose className is an animated value.
	ClassName() (string, bool)
	Parent() Element
	// PrecedingSameTag counts earlier siblings with the same tag name.
	PrecedingSameTag() int
	// SameTagSiblings counts the parent's children with this tag, self included.
	SameTagSiblings() int
	TextContent() string
}

// maxDepth bounds ancestor walks so malformed snapshot chains cannot loop.
const maxDepth = 512

func isNil(el Element) bool {
	if el == nil {
		return true
	}
	v := reflect.ValueOf(el)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Interface:
		return v.IsNil()
	}
	return false
}

type htmlElement struct {
	n *html.Node
}

// FromHTML wraps a parsed element node. Non-element nodes yield nil.
func FromHTML(n *html.Node) Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	return htmlElement{n: n}
}

func (e htmlElement) TagName() string {
	return strings.ToLower(e.n.Data)
}

func (e htmlElement) Attr(name string) (string, bool) {
	if !htmlquery.ExistsAttr(e.n, name) {
		return "", false
	}
	return htmlquery.SelectAttr(e.n, name), true
}

func (e htmlElement) ClassName() (string, bool) {
	if e.n.Namespace == "svg" || e.n.Namespace == "math" {
		return "", false
	}
	return e.Attr("class")
}

func (e htmlElement) Parent() Element {
	if e.n.Parent == nil || e.n.Parent.Type != html.ElementNode {
		return nil
	}
	return htmlElement{n: e.n.Parent}
}

func (e htmlElement) PrecedingSameTag() int {
	count := 0
	for s := e.n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && strings.EqualFold(s.Data, e.n.Data) {
			count++
		}
	}
	return count
}

func (e htmlElement) SameTagSiblings() int {
	if e.n.Parent == nil {
		return 1
	}
	count := 0
	for c := e.n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && strings.EqualFold(c.Data, e.n.Data) {
			count++
		}
	}
	return count
}

func (e htmlElement) TextContent() string {
	return htmlquery.InnerText(e.n)
}
