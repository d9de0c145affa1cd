package codegen

import (
	"fmt"
	"strings"
	"time"

	"steprecorder/internal/models"
)

func playwrightScript(steps []models.Step, sys models.SystemInfo, now time.Time) string {
	env, date := scriptEnvironment(sys, now)

	var b strings.Builder
	b.WriteString("// Generated Playwright Test Script\n")
	fmt.Fprintf(&b, "// Environment: %s\n", oneLine(env))
	fmt.Fprintf(&b, "// Date: %s\n\n", oneLine(date))
	b.WriteString("const { test } = require('@playwright/test');\n\n")
	b.WriteString("test('recorded test case', async ({ page }) => {\n")

	for _, step := range steps {
		b.WriteString("  // " + oneLine(step.Description) + "\n")
		b.WriteString("  " + playwrightStep(step) + "\n")
	}

	b.WriteString("});\n")
	return b.String()
}

func playwrightStep(step models.Step) string {
	switch kindOf(step) {
	case models.ActionNavigate:
		url := navigateURL(step)
		if url == "" {
			return "// navigate - no url available"
		}
		return fmt.Sprintf("await page.goto('%s');", escapeJS(url))
	case models.ActionClick:
		if !step.HasCSS() {
			return "// click - no selector available"
		}
		return fmt.Sprintf("await page.locator('%s').click();", escapeJS(step.Selectors.CSS))
	case models.ActionInput:
		if !step.HasCSS() {
			return "// input - no selector available"
		}
		return fmt.Sprintf("await page.locator('%s').fill('%s');",
			escapeJS(step.Selectors.CSS), escapeJS(inputValue(step)))
	default:
		return "// unsupported action: " + oneLine(step.Action)
	}
}
