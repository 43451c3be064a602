package session

import (
	"html/template"
	"io"

	"chat-relay/internal/domain"
	"chat-relay/internal/markup"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{range .Entries}}<div class="message {{.Role}}">{{if .HTML}}{{.HTML}}{{else}}{{.Text}}{{end}}</div>
{{end}}</body>
</html>
`))

type pageEntry struct {
	Role string
	Text string
	HTML template.HTML
}

// WriteHTML renders msgs as a standalone page. User text is escaped.
// Assistant replies go through markup.Format and are inserted unescaped.
func WriteHTML(w io.Writer, title string, msgs []domain.Message) error {
	entries := make([]pageEntry, 0, len(msgs))
	for _, m := range msgs {
		e := pageEntry{Role: string(m.Role), Text: m.Content}
		if m.Role == domain.RoleAssistant {
			e.HTML = template.HTML(markup.Format(m.Content))
		}
		entries = append(entries, e)
	}
	return pageTmpl.Execute(w, struct {
		Title   string
		Entries []pageEntry
	}{Title: title, Entries: entries})
}
