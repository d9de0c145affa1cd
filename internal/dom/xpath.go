package dom

import (
	"fmt"
	"strconv"
	"strings"
)

// GenerateXPath returns an absolute XPath for el. An element with a
// non-empty id short-circuits to an id predicate; otherwise the path walks
// up to the root, adding a 1-based position only where the element is not
// the first sibling of its tag.
//
// The id form is not escaped: an id containing a double quote yields an
// expression that will not parse.
func GenerateXPath(el Element) string {
	if isNil(el) {
		return ""
	}
	if id, ok := el.Attr("id"); ok && id != "" {
		return fmt.Sprintf(`//*[@id="%s"]`, id)
	}

	var segments []string
	depth := 0
	for cur := el; !isNil(cur) && depth < maxDepth; cur = cur.Parent() {
		depth++
		tag := cur.TagName()
		if tag == "" {
			continue
		}
		if pos := cur.PrecedingSameTag() + 1; pos > 1 {
			tag += "[" + strconv.Itoa(pos) + "]"
		}
		segments = append(segments, tag)
	}
	if len(segments) == 0 {
		return ""
	}
	reverse(segments)
	return "//" + strings.Join(segments, "/")
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
