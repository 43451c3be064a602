// Package markup turns the small Markdown-like subset used in model replies
// into HTML fragments.
//
// The input is not escaped. A reply containing HTML is passed through as-is,
// so callers that inject the result into a page inherit whatever markup the
// upstream model produced.
package markup

import (
	"regexp"
	"strings"

	"chat-relay/internal/domain"
)

var (
	headingRe   = regexp.MustCompile(`(?m)^## (.*)\n?`)
	bulletRe    = regexp.MustCompile(`(?m)^\* (.*)$`)
	tableRowRe  = regexp.MustCompile(`(?m)^\|(.+)\|$`)
	boldRe      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe    = regexp.MustCompile(`\*(.+?)\*`)
	inlineRe    = regexp.MustCompile("`([^`\n]+)`")
	codeBlockRe = regexp.MustCompile("(?s)```(.*?)```")
)

// Format applies the substitutions in a fixed order. Later rules rely on the
// earlier ones: bullets must be consumed before italics, otherwise the "* "
// marker would open an <em>.
//
// Consecutive bullets are each wrapped in their own <ul>; they are not merged
// into a single list.
func Format(raw string) string {
	out := headingRe.ReplaceAllString(raw, "<h2>$1</h2>")
	out = bulletRe.ReplaceAllString(out, "<ul><li>$1</li></ul>")
	out = tableRowRe.ReplaceAllStringFunc(out, tableRow)
	out = boldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicRe.ReplaceAllString(out, "<em>$1</em>")
	out = inlineRe.ReplaceAllString(out, "<code>$1</code>")
	out = codeBlockRe.ReplaceAllString(out, "<pre><code>$1</code></pre>")
	return out
}

// Reply formats raw and keeps the source text alongside the HTML.
func Reply(raw string) domain.FormattedReply {
	return domain.FormattedReply{RawText: raw, HTML: Format(raw)}
}

func tableRow(line string) string {
	inner := tableRowRe.FindStringSubmatch(line)[1]
	var b strings.Builder
	b.WriteString("<tr>")
	for _, cell := range strings.Split(inner, "|") {
		b.WriteString("<td>")
		b.WriteString(strings.TrimSpace(cell))
		b.WriteString("</td>")
	}
	b.WriteString("</tr>")
	return b.String()
}
