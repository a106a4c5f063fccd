package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

// Data is everything the notification body depends on. Link is empty when the document
// travels as an attachment; the body then says so instead of linking.
type Data struct {
	SenderEmail string
	Message     string
	Filename    string
	Link        string
}

var bodyTmpl = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body>
<p>{{.SenderEmail}} shared a document with you.</p>
{{- if .Message}}
<blockquote>{{.Message}}</blockquote>
{{- end}}
{{- if .Link}}
<p>Thank you! <a href="{{.Link}}" target="_blank">Click here to download {{if .Filename}}{{.Filename}}{{else}}your PDF{{end}}</a></p>
{{- else}}
<p>Thank you! Please find {{if .Filename}}{{.Filename}}{{else}}the PDF document{{end}} attached.</p>
{{- end}}
</body>
</html>
`))

// Render produces the HTML body. It performs no I/O and returns identical output for
// identical input.
func Render(d Data) (string, error) {
	var buf bytes.Buffer
	if err := bodyTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return buf.String(), nil
}
