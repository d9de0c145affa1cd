package dom

import (
	"fmt"
	"strings"
)

// Describe produces a short human-readable label for el, trying the most
// specific attribute first.
func Describe(el Element) string {
	if isNil(el) {
		return ""
	}
	tag := el.TagName()

	if id, ok := el.Attr("id"); ok && id != "" {
		return fmt.Sprintf(`%s with id "%s"`, tag, id)
	}
	if name, ok := el.Attr("name"); ok && name != "" {
		return fmt.Sprintf(`%s with name "%s"`, tag, name)
	}
	if cls, ok := el.ClassName(); ok && strings.TrimSpace(cls) != "" {
		return fmt.Sprintf(`%s with class "%s"`, tag, cls)
	}

	raw := el.TextContent()
	text := strings.TrimSpace(raw)
	switch tag {
	case "a":
		if text != "" {
			return fmt.Sprintf(`link with text "%s"`, text)
		}
	case "button":
		if text != "" {
			return fmt.Sprintf(`button with text "%s"`, text)
		}
	case "input":
		return InputType(el) + " input field"
	case "label":
		if raw != "" {
			return fmt.Sprintf(`label with text "%s"`, text)
		}
	}
	return tag
}

// InputType is the effective type of an input element, defaulting to
// "text" as browsers do when the attribute is absent or empty.
func InputType(el Element) string {
	if isNil(el) {
		return ""
	}
	if t, ok := el.Attr("type"); ok && strings.TrimSpace(t) != "" {
		return strings.ToLower(strings.TrimSpace(t))
	}
	return "text"
}

// IsPassword reports whether el is a password input.
func IsPassword(el Element) bool {
	return !isNil(el) && el.TagName() == "input" && InputType(el) == "password"
}
