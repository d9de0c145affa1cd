package codegen

import (
	"fmt"
	"strings"

	"steprecorder/internal/models"
)

// testCaseReport is the long-form report saved next to a recording. Unlike
// the manual test case it keeps each step's action and timestamp.
func testCaseReport(steps []models.Step, sys models.SystemInfo) string {
	var b strings.Builder
	b.WriteString("============== TEST CASE REPORT ==============\n\n")

	b.WriteString("=== SYSTEM INFORMATION ===\n")
	fmt.Fprintf(&b, "Browser: %s\n", sys.Browser)
	fmt.Fprintf(&b, "OS: %s\n", sys.OS)
	fmt.Fprintf(&b, "Resolution: %s\n", sys.Resolution)
	fmt.Fprintf(&b, "Timestamp: %s\n\n", sys.Timestamp)

	b.WriteString("=== STEPS TO REPRODUCE ===\n")
	for i, step := range steps {
		fmt.Fprintf(&b, "Step %d: %s\n", i+1, step.Action)
		fmt.Fprintf(&b, "Description: %s\n", step.Description)
		if step.Selectors != nil {
			fmt.Fprintf(&b, "XPath: %s\n", step.Selectors.XPath)
			fmt.Fprintf(&b, "CSS Selector: %s\n", step.Selectors.CSS)
		}
		fmt.Fprintf(&b, "Timestamp: %s\n\n", step.Timestamp)
	}

	b.WriteString("=== END OF TEST CASE ===\n")
	return b.String()
}
