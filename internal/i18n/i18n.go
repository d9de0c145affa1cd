package i18n

import "sync"

// Key identifies a translatable token used in step descriptions.
type Key string

const (
	Click    Key = "click"
	Input    Key = "input"
	Navigate Key = "navigate"
	On       Key = "on"
)

// DefaultLanguage is used whenever a requested language is unknown, and
// supplies any token a language row leaves out.
const DefaultLanguage = "en"

type row struct {
	Code   string
	Name   string
	Tokens map[Key]string
}

// table lists every supported language in display order. Adding a row is
// all it takes to support a language.
var (
	mu    sync.RWMutex
	table = []row{
		{"en", "English", map[Key]string{Click: "Click", Input: "Input", Navigate: "Navigate to", On: "on"}},
		{"de", "Deutsch", map[Key]string{Click: "Klick", Input: "Eingabe", Navigate: "Navigieren zu", On: "auf"}},
		{"fr", "Français", map[Key]string{Click: "Clic", Input: "Saisie", Navigate: "Naviguer vers", On: "sur"}},
		{"es", "Español", map[Key]string{Click: "Clic", Input: "Entrada", Navigate: "Navegar a", On: "en"}},
		{"zh", "中文", map[Key]string{Click: "点击", Input: "输入", Navigate: "导航至", On: "在"}},
	}
)

// Register adds a language after the built-in ones, or replaces the tokens
// of an existing code. The returned func restores the previous table.
func Register(code, name string, tokens map[Key]string) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	saved := table
	next := make([]row, 0, len(table)+1)
	replaced := false
	for _, r := range table {
		if r.Code == code {
			r = row{Code: code, Name: name, Tokens: tokens}
			replaced = true
		}
		next = append(next, r)
	}
	if !replaced {
		next = append(next, row{Code: code, Name: name, Tokens: tokens})
	}
	table = next
	return func() {
		mu.Lock()
		table = saved
		mu.Unlock()
	}
}

func lookup(lang string) (row, bool) {
	mu.RLock()
	defer mu.RUnlock()
	for _, r := range table {
		if r.Code == lang {
			return r, true
		}
	}
	return row{}, false
}

// Translate returns the token for lang. A token missing from lang, or an
// unknown lang, falls back to English; a key English lacks is echoed.
func Translate(lang string, key Key) string {
	if r, ok := lookup(lang); ok {
		if v, ok := r.Tokens[key]; ok {
			return v
		}
	}
	if r, ok := lookup(DefaultLanguage); ok {
		if v, ok := r.Tokens[key]; ok {
			return v
		}
	}
	return string(key)
}

// Normalize maps an unsupported language to the default.
func Normalize(lang string) string {
	if Supported(lang) {
		return lang
	}
	return DefaultLanguage
}

func Supported(lang string) bool {
	_, ok := lookup(lang)
	return ok
}

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages lists the supported languages in table order.
func Languages() []Language {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Language, 0, len(table))
	for _, r := range table {
		out = append(out, Language{Code: r.Code, Name: r.Name})
	}
	return out
}
