// ABOUTME: Renders a conversation as a Markdown or HTML transcript
// ABOUTME: HTML is produced from the Markdown with goldmark, raw HTML in messages is escaped

package transcript

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/mail-assistant/internal/store"
)

// Format selects the transcript output
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ErrUnknownFormat is returned for an unsupported format name
var ErrUnknownFormat = errors.New("unknown transcript format")

// ParseFormat accepts "markdown", "md" or "html", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Document is what a transcript is rendered from
type Document struct {
	Title          string
	ConversationID string
	Messages       []store.Message
}

// FromConversation builds a Document from a saved conversation.
func FromConversation(conv *store.Conversation) Document {
	return Document{
		Title:          conv.Title,
		ConversationID: conv.ConversationID,
		Messages:       conv.Messages,
	}
}

// roleLabel names a message's author in the transcript.
func roleLabel(m store.Message) string {
	switch {
	case m.Role == store.RoleUser:
		return "用户"
	case m.IsError:
		return "AI助教（错误）"
	default:
		return "AI助教"
	}
}

// Markdown renders doc as Markdown.
func Markdown(doc Document) string {
	var b strings.Builder

	title := doc.Title
	if title == "" {
		title = "对话记录"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if doc.ConversationID != "" {
		fmt.Fprintf(&b, "会话 ID: `%s`\n\n", doc.ConversationID)
	}

	for _, m := range doc.Messages {
		b.WriteString("---\n\n")
		fmt.Fprintf(&b, "**%s**", roleLabel(m))
		if m.Timestamp != "" {
			fmt.Fprintf(&b, " · %s", m.Timestamp)
		}
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteString("\n\n")

		if len(m.Sources) > 0 {
			b.WriteString("来源:\n\n")
			for _, src := range m.Sources {
				fmt.Fprintf(&b, "- %s\n", src.Label())
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var pageTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders doc as a standalone HTML page.
func HTML(doc Document) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(doc)), &body); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}

	title := doc.Title
	if title == "" {
		title = "对话记录"
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return page.String(), nil
}

// Write renders doc in format to w.
func Write(w io.Writer, doc Document, format Format) error {
	var out string
	switch format {
	case FormatMarkdown:
		out = Markdown(doc)
	case FormatHTML:
		var err error
		out, err = HTML(doc)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	_, err := io.WriteString(w, out)
	return err
}
