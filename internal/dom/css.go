package dom

import (
	"fmt"
	"strings"
)

// GenerateCSS returns a child-combinator CSS path for el.
//
// An id on the element itself yields "#id". An ancestor with an id ends the
// walk with a "tag#id" segment. Class names are appended only when the
// element reports a string class; :nth-of-type is added when the parent has
// more than one child with the same tag.
func GenerateCSS(el Element) string {
	if isNil(el) {
		return ""
	}
	if id, ok := el.Attr("id"); ok && id != "" {
		return "#" + id
	}

	var segments []string
	depth := 0
	for cur := el; !isNil(cur) && depth < maxDepth; cur = cur.Parent() {
		depth++
		seg := cur.TagName()
		if seg == "" {
			continue
		}
		if id, ok := cur.Attr("id"); ok && id != "" {
			segments = append(segments, seg+"#"+id)
			break
		}
		if cls, ok := cur.ClassName(); ok {
			if fields := strings.Fields(cls); len(fields) > 0 {
				seg += "." + strings.Join(fields, ".")
			}
		}
		if cur.SameTagSiblings() > 1 {
			seg += fmt.Sprintf(":nth-of-type(%d)", cur.PrecedingSameTag()+1)
		}
		segments = append(segments, seg)
	}
	reverse(segments)
	return strings.Join(segments, " > ")
}
