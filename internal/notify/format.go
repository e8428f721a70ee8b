package notify

import (
	"fmt"
	"strings"
	"time"
)

// Args fill template placeholders.
type Args map[string]any

// Format substitutes {key} placeholders in tmpl with args. Unknown
// placeholders are left verbatim so a template typo stays visible.
func Format(tmpl string, args Args) string {
	out := tmpl
	for key, value := range args {
		out = strings.ReplaceAll(out, "{"+key+"}", fmt.Sprint(value))
	}
	return out
}

// Ellipsis truncates s to at most max bytes, appending the marker on a
// new line when anything was cut.
func Ellipsis(s string, max int, marker string) string {
	if len(s) <= max {
		return s
	}
	cut := max - len(marker) - 1
	if cut < 0 {
		cut = 0
	}
	// Never split a rune.
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n" + marker
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// FormatTime renders a maturation instant the way players see it:
// weekday, day, month and clock time in the configured zone.
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Monday 2 January 15:04")
}
