package enquiry

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var bodyTemplate = template.Must(template.New("enquiry").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body>
    <div>
        <div>
            <h2>{{.Title}}</h2>
        </div>
        <div>
            <p>A new enquiry has been submitted through the website. Below are the details:</p>

            <table>
                <tr>
                    <td>Name:</td>
                    <td>{{.Name}}</td>
                </tr>
                <tr>
                    <td>Email:</td>
                    <td>{{.Email}}</td>
                </tr>
                <tr>
                    <td>Topic:</td>
                    <td>{{.Topic}}</td>
                </tr>
                <tr>
                    <td>Subject:</td>
                    <td>{{.Subject}}</td>
                </tr>
                <tr>
                    <td>Message:</td>
                    <td>{{.Message}}</td>
                </tr>
            </table>

            <p>Please review and follow up as necessary.</p>
        </div>
    </div>
</body>
</html>
`))

type bodyData struct {
	Title   string
	Name    string
	Email   string
	Topic   string
	Subject string
	Message template.HTML
}

// RenderHTML builds the HTML notification body for a submission.
// PRE: sub has passed Validate
// POST: Returns an HTML document in which every submitted value is escaped
func RenderHTML(sub Submission) (string, error) {
	data := bodyData{
		Title:   sub.NotificationSubject(),
		Name:    sub.FullName(),
		Email:   sub.Email,
		Topic:   sub.FormattedTopic(),
		Subject: sub.Subject,
		Message: renderMessage(sub.Message),
	}
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render enquiry body: %w", err)
	}
	return buf.String(), nil
}

// renderMessage escapes the message text verbatim and turns line breaks into <br>.
// INVARIANT: no character of msg is dropped or reinterpreted as markup
func renderMessage(msg string) template.HTML {
	escaped := template.HTMLEscapeString(strings.ReplaceAll(msg, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>\n"))
}
