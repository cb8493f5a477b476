package render

import (
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"skymock/app/models"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// CompactNumber renders counts the way the post chrome shows them:
// 999, 1.5K, 2.3M.
func CompactNumber(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// RelativeTime formats the age of t relative to now.
func RelativeTime(now, t time.Time) string {
	minutes := int64(now.Sub(t) / time.Minute)
	if minutes < 1 {
		return "now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}
	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}
	return t.Format("Jan 2")
}

// DisplayTime is the header timestamp for a post: empty when the date or
// clock is missing, the raw values when they do not parse, otherwise
// RelativeTime against now.
func DisplayTime(data models.PostData, loc *time.Location, now time.Time) string {
	ts, err := data.Timestamp(loc)
	if errors.Is(err, models.ErrNoTimestamp) {
		return ""
	}
	if err != nil {
		return data.Date + " " + data.Time
	}
	return RelativeTime(now, ts)
}

// FormatContent escapes post text and turns bare URLs into links and
// newlines into <br>. Nothing else in the text survives as markup.
func FormatContent(content string) template.HTML {
	var b strings.Builder
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(content, -1) {
		writeText(&b, content[last:loc[0]])
		link := template.HTMLEscapeString(content[loc[0]:loc[1]])
		fmt.Fprintf(&b, `<a href="%s" target="_blank" rel="noopener" class="text-blue-500 hover:underline">%s</a>`, link, link)
		last = loc[1]
	}
	writeText(&b, content[last:])
	return template.HTML(b.String())
}

func writeText(b *strings.Builder, s string) {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString("<br>")
		}
		b.WriteString(template.HTMLEscapeString(line))
	}
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// imageSource passes data:image URLs through as trusted, since ingest
// produced them; everything else goes through html/template's URL filter.
func imageSource(src string) interface{} {
	if strings.HasPrefix(src, "data:image/") {
		return template.URL(src)
	}
	return src
}

// HasAvatar reports whether src should be shown instead of the placeholder.
func HasAvatar(src string) bool {
	return src != "" && src != legacyDefaultAvatar
}
