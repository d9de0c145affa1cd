// Package codegen turns a recorded step sequence into a manual test report
// or an automation script.
package codegen

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"steprecorder/internal/i18n"
	"steprecorder/internal/models"
)

// Format identifies an output target.
type Format string

const (
	FormatManual         Format = "manual"
	FormatPuppeteer      Format = "js-puppeteer"
	FormatPlaywright     Format = "js-playwright"
	FormatPythonSelenium Format = "python-selenium"
	FormatJavaSelenium   Format = "java-selenium"
	FormatCSharpSelenium Format = "csharp-selenium"
	FormatReport         Format = "report"
)

// Output is the generated artifact. Implemented is false for placeholder
// formats.
type Output struct {
	Format      Format `json:"format"`
	Source      string `json:"source"`
	Implemented bool   `json:"implemented"`
}

type FormatInfo struct {
	ID          Format `json:"id"`
	Label       string `json:"label"`
	Extension   string `json:"extension"`
	Implemented bool   `json:"implemented"`
}

var formats = []FormatInfo{
	{FormatManual, "Manual Test Case", "txt", true},
	{FormatPuppeteer, "JavaScript (Puppeteer)", "js", true},
	{FormatPlaywright, "JavaScript (Playwright)", "js", true},
	{FormatPythonSelenium, "Python (Selenium)", "py", false},
	{FormatJavaSelenium, "Java (Selenium)", "java", false},
	{FormatCSharpSelenium, "C# (Selenium)", "cs", false},
	{FormatReport, "Test Case Report", "txt", true},
}

// Formats lists every selectable output format in display order.
func Formats() []FormatInfo {
	out := make([]FormatInfo, len(formats))
	copy(out, formats)
	return out
}

func lookup(f Format) (FormatInfo, bool) {
	for _, info := range formats {
		if info.ID == f {
			return info, true
		}
	}
	return FormatInfo{}, false
}

// Generate renders steps in the requested format. An unknown format falls
// back to the manual report. It never fails: steps it cannot translate
// become comments in the output.
func Generate(steps []models.Step, sys models.SystemInfo, format Format) Output {
	return generateAt(steps, sys, format, time.Now())
}

func generateAt(steps []models.Step, sys models.SystemInfo, format Format, now time.Time) Output {
	if _, ok := lookup(format); !ok {
		format = FormatManual
	}

	switch format {
	case FormatPuppeteer:
		return Output{Format: format, Source: puppeteerScript(steps, sys, now), Implemented: true}
	case FormatPlaywright:
		return Output{Format: format, Source: playwrightScript(steps, sys, now), Implemented: true}
	case FormatPythonSelenium:
		return Output{Format: format, Source: "# Python Selenium code generation not implemented yet"}
	case FormatJavaSelenium:
		return Output{Format: format, Source: "// Java Selenium code generation not implemented yet"}
	case FormatCSharpSelenium:
		return Output{Format: format, Source: "// C# Selenium code generation not implemented yet"}
	case FormatReport:
		return Output{Format: format, Source: testCaseReport(steps, sys), Implemented: true}
	default:
		return Output{Format: FormatManual, Source: manualReport(steps, sys), Implemented: true}
	}
}

// FileName is the download name for an export made at t.
func FileName(format Format, t time.Time) string {
	info, ok := lookup(format)
	if !ok {
		info, _ = lookup(FormatManual)
	}
	return fmt.Sprintf("TestCase_%s.%s", t.UTC().Format("2006-01-02T15-04-05"), info.Extension)
}

// kindOf recovers the action kind for steps persisted without one by
// matching the localized verb against every known language.
func kindOf(step models.Step) models.ActionKind {
	if step.Kind != "" {
		return step.Kind
	}
	for _, lang := range i18n.Languages() {
		switch step.Action {
		case i18n.Translate(lang.Code, i18n.Click):
			return models.ActionClick
		case i18n.Translate(lang.Code, i18n.Input):
			return models.ActionInput
		case i18n.Translate(lang.Code, i18n.Navigate):
			return models.ActionNavigate
		}
	}
	return ""
}

// navigateURL strips the localized "Navigate to " prefix from a navigate
// step's description.
func navigateURL(step models.Step) string {
	prefixes := []string{step.Action + " "}
	for _, lang := range i18n.Languages() {
		prefixes = append(prefixes, i18n.Translate(lang.Code, i18n.Navigate)+" ")
	}
	for _, p := range prefixes {
		if p != " " && strings.HasPrefix(step.Description, p) {
			return strings.TrimPrefix(step.Description, p)
		}
	}
	return ""
}

var quoted = regexp.MustCompile(`"([^"]*)"`)

// inputValue is the first double-quoted substring of an input description.
func inputValue(step models.Step) string {
	m := quoted.FindStringSubmatch(step.Description)
	if m == nil {
		return ""
	}
	return m[1]
}

// escapeJS makes s safe inside a single-quoted JavaScript string.
func escapeJS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}

// oneLine keeps step text from breaking out of a line comment.
func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

func scriptEnvironment(sys models.SystemInfo, now time.Time) (env, date string) {
	if sys == (models.SystemInfo{}) {
		return "Unknown", now.Format(models.SessionTimeLayout)
	}
	return sys.Browser + ", " + sys.OS, sys.Timestamp
}
