package recorder

import (
	"fmt"
	"regexp"
	"strings"

	"steprecorder/internal/models"
)

var browserVersions = []struct {
	marker string
	name   string
	re     *regexp.Regexp
}{
	{"Chrome", "Chrome", regexp.MustCompile(`Chrome/(\d+\.\d+)`)},
	{"Firefox", "Firefox", regexp.MustCompile(`Firefox/(\d+\.\d+)`)},
	{"Edge", "Edge", regexp.MustCompile(`Edge/(\d+\.\d+)`)},
}

var osMarkers = []struct {
	marker string
	name   string
}{
	{"Win", "Windows"},
	{"Mac", "MacOS"},
	{"Linux", "Linux"},
	{"Android", "Android"},
	{"iOS", "iOS"},
}

// SystemInfoFromUserAgent derives the environment block of a report from a
// browser user agent and screen size. Unrecognized agents are kept verbatim.
func SystemInfoFromUserAgent(ua string, width, height int) models.SystemInfo {
	info := models.SystemInfo{
		Browser:    ua,
		OS:         "Unknown OS",
		Resolution: fmt.Sprintf("%dx%d", width, height),
	}
	for _, b := range browserVersions {
		if !strings.Contains(ua, b.marker) {
			continue
		}
		if m := b.re.FindStringSubmatch(ua); m != nil {
			info.Browser = b.name + " " + m[1]
		}
		break
	}
	for _, o := range osMarkers {
		if strings.Contains(ua, o.marker) {
			info.OS = o.name
			break
		}
	}
	return info
}
