package codegen

import (
	"fmt"
	"strings"
	"time"

	"steprecorder/internal/models"
)

func puppeteerScript(steps []models.Step, sys models.SystemInfo, now time.Time) string {
	env, date := scriptEnvironment(sys, now)

	var b strings.Builder
	fmt.Fprintf(&b, `// Generated Puppeteer Test Script
// Environment: %s
// Date: %s

const puppeteer = require('puppeteer');

(async () => {
  const browser = await puppeteer.launch({
    headless: false,
    defaultViewport: null
  });

  const page = await browser.newPage();

  try {
`, oneLine(env), oneLine(date))

	for _, step := range steps {
		b.WriteString("\n    // " + oneLine(step.Description) + "\n")
		writePuppeteerStep(&b, step)
	}

	b.WriteString(`
    // Test completed successfully
    console.log('Test completed successfully');
  } catch (error) {
    console.error('Test failed:', error);
  } finally {
    await browser.close();
  }
})();`)
	return b.String()
}

func writePuppeteerStep(b *strings.Builder, step models.Step) {
	switch kindOf(step) {
	case models.ActionNavigate:
		url := navigateURL(step)
		if url == "" {
			b.WriteString("    // TODO: Add URL for the navigate action\n")
			return
		}
		fmt.Fprintf(b, "    await page.goto('%s', { waitUntil: 'networkidle2' });\n", escapeJS(url))
	case models.ActionClick:
		if !step.HasCSS() {
			b.WriteString("    // TODO: Add selector for the click action\n")
			return
		}
		css := escapeJS(step.Selectors.CSS)
		fmt.Fprintf(b, "    await page.waitForSelector('%s');\n", css)
		fmt.Fprintf(b, "    await page.click('%s');\n", css)
	case models.ActionInput:
		if !step.HasCSS() {
			b.WriteString("    // TODO: Add selector for the input action\n")
			return
		}
		css := escapeJS(step.Selectors.CSS)
		fmt.Fprintf(b, "    await page.waitForSelector('%s');\n", css)
		fmt.Fprintf(b, "    await page.type('%s', '%s');\n", css, escapeJS(inputValue(step)))
	default:
		fmt.Fprintf(b, "    // Unsupported action: %s\n", oneLine(step.Action))
	}
}
