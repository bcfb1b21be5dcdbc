// Package render formats the final report as markdown and minimal HTML.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"statusgen/internal/tracker"
)

// Report is everything the formatter needs.
type Report struct {
	Since     time.Time
	Days      int
	Summary   string
	Qualified []tracker.Candidate
	// QualifiedIDs is the full id list, including ids trimmed from the
	// summarized set. Trimmed items stay visible here.
	QualifiedIDs []int
	Trimmed      int
	ItemURL      func(id int) string
}

// Markdown renders the report body.
func Markdown(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# What shipped: last %d days\n\n", r.Days)
	fmt.Fprintf(&b, "_Window since %s. %d items qualified", r.Since.Format("2006-01-02"), len(r.QualifiedIDs))
	if r.Trimmed > 0 {
		fmt.Fprintf(&b, "; %d omitted from the summary for length", r.Trimmed)
	}
	b.WriteString("._\n\n")

	if r.Summary != "" {
		b.WriteString(r.Summary)
		b.WriteString("\n\n")
	}

	if len(r.QualifiedIDs) > 0 {
		b.WriteString("## All qualified items\n\n")
		titles := make(map[int]string, len(r.Qualified))
		for _, c := range r.Qualified {
			titles[c.ID] = c.Summary
		}
		for _, id := range r.QualifiedIDs {
			ref := fmt.Sprintf("#%d", id)
			if r.ItemURL != nil {
				if u := r.ItemURL(id); u != "" {
					ref = fmt.Sprintf("[#%d](%s)", id, u)
				}
			}
			if title := titles[id]; title != "" {
				fmt.Fprintf(&b, "- %s %s\n", ref, title)
			} else {
				fmt.Fprintf(&b, "- %s\n", ref)
			}
		}
	}
	return b.String()
}

// Empty renders the nothing-to-report output with a deep link back to the
// upstream search UI.
func Empty(days int, searchURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# What shipped: last %d days\n\n", days)
	b.WriteString("Nothing to report: no items qualified in the window.\n")
	if searchURL != "" {
		fmt.Fprintf(&b, "\n[Review the search upstream](%s)\n", searchURL)
	}
	return b.String()
}

// HTML converts the report markdown into a standalone HTML fragment. This
// covers only the constructs Markdown above emits: headings, emphasis
// lines, list items, links, paragraphs.
func HTML(md string) string {
	var b strings.Builder
	inList := false
	flushList := func() {
		if inList {
			b.WriteString("</ul>\n")
			inList = false
		}
	}

	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushList()
		case strings.HasPrefix(trimmed, "## "):
			flushList()
			fmt.Fprintf(&b, "<h2>%s</h2>\n", inline(strings.TrimPrefix(trimmed, "## ")))
		case strings.HasPrefix(trimmed, "# "):
			flushList()
			fmt.Fprintf(&b, "<h1>%s</h1>\n", inline(strings.TrimPrefix(trimmed, "# ")))
		case strings.HasPrefix(trimmed, "- "):
			if !inList {
				b.WriteString("<ul>\n")
				inList = true
			}
			fmt.Fprintf(&b, "<li>%s</li>\n", inline(strings.TrimPrefix(trimmed, "- ")))
		default:
			flushList()
			fmt.Fprintf(&b, "<p>%s</p>\n", inline(trimmed))
		}
	}
	flushList()
	return b.String()
}

// inline escapes a line and converts links and _emphasis_.
func inline(s string) string {
	s = html.EscapeString(s)

	// [text](url)
	for {
		open := strings.Index(s, "[")
		if open < 0 {
			break
		}
		mid := strings.Index(s[open:], "](")
		if mid < 0 {
			break
		}
		end := strings.Index(s[open+mid:], ")")
		if end < 0 {
			break
		}
		text := s[open+1 : open+mid]
		url := s[open+mid+2 : open+mid+end]
		s = s[:open] + fmt.Sprintf(`<a href="%s">%s</a>`, url, text) + s[open+mid+end+1:]
	}

	if strings.HasPrefix(s, "_") && strings.HasSuffix(s, "_") && len(s) > 2 {
		s = "<em>" + s[1:len(s)-1] + "</em>"
	}
	return s
}
