package dom

import "strings"

// Snapshot is an element as serialized by the in-page capture script:
// the target plus its ancestor chain, with sibling counts precomputed.
type Snapshot struct {
	Tag   string            `json:"tag"`
	Attrs map[string]string `json:"attrs,omitempty"`
	// Class is nil when the page reported a non-string className.
	Class    *string   `json:"className,omitempty"`
	Text     string    `json:"text,omitempty"`
	Index    int       `json:"index"`
	SameTag  int       `json:"sameTag"`
	ParentEl *Snapshot `json:"parent,omitempty"`
}

func (s *Snapshot) TagName() string {
	if s == nil {
		return ""
	}
	return strings.ToLower(s.Tag)
}

func (s *Snapshot) Attr(name string) (string, bool) {
	if s == nil || s.Attrs == nil {
		return "", false
	}
	v, ok := s.Attrs[name]
	return v, ok
}

func (s *Snapshot) ClassName() (string, bool) {
	if s == nil || s.Class == nil {
		return "", false
	}
	return *s.Class, true
}

func (s *Snapshot) Parent() Element {
	if s == nil || s.ParentEl == nil {
		return nil
	}
	return s.ParentEl
}

func (s *Snapshot) PrecedingSameTag() int {
	if s == nil || s.Index < 0 {
		return 0
	}
	return s.Index
}

func (s *Snapshot) SameTagSiblings() int {
	if s == nil || s.SameTag < 1 {
		return 1
	}
	return s.SameTag
}

func (s *Snapshot) TextContent() string {
	if s == nil {
		return ""
	}
	return s.Text
}

// Capture converts any Element into a detached Snapshot chain.
func Capture(el Element) *Snapshot {
	if isNil(el) {
		return nil
	}
	var root, prev *Snapshot
	depth := 0
	for cur := el; !isNil(cur) && depth < maxDepth; cur = cur.Parent() {
		s := &Snapshot{
			Tag:     cur.TagName(),
			Index:   cur.PrecedingSameTag(),
			SameTag: cur.SameTagSiblings(),
		}
		for _, name := range []string{"id", "name", "type"} {
			if v, ok := cur.Attr(name); ok {
				if s.Attrs == nil {
					s.Attrs = map[string]string{}
				}
				s.Attrs[name] = v
			}
		}
		if cls, ok := cur.ClassName(); ok {
			s.Class = &cls
		}
		if root == nil {
			s.Text = cur.TextContent()
			root = s
		} else {
			prev.ParentEl = s
		}
		prev = s
		depth++
	}
	return root
}
