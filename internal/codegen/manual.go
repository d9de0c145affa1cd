package codegen

import (
	"fmt"
	"strings"

	"steprecorder/internal/models"
)

func manualReport(steps []models.Step, sys models.SystemInfo) string {
	var b strings.Builder
	b.WriteString("=== TEST CASE ===\n\n")

	b.WriteString("-- Environment --\n")
	if sys != (models.SystemInfo{}) {
		fmt.Fprintf(&b, "Browser: %s\n", sys.Browser)
		fmt.Fprintf(&b, "OS: %s\n", sys.OS)
		fmt.Fprintf(&b, "Resolution: %s\n", sys.Resolution)
		fmt.Fprintf(&b, "Date: %s\n", sys.Timestamp)
	}
	b.WriteString("\n-- Steps to Reproduce --\n\n")

	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step.Description)
		if step.Selectors != nil {
			fmt.Fprintf(&b, "   Element: XPath: %s\n", step.Selectors.XPath)
			fmt.Fprintf(&b, "   Element: CSS: %s\n", step.Selectors.CSS)
		}
		b.WriteString("\n")
	}

	b.WriteString("-- End of Test Case --")
	return b.String()
}
