// ABOUTME: Tests for transcript rendering
// ABOUTME: Covers Markdown layout, HTML conversion and escaping, and format parsing

package transcript

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mail-assistant/internal/store"
)

func sampleDoc() Document {
	return Document{
		Title:          "邮箱接入",
		ConversationID: "conv-1",
		Messages: []store.Message{
			{ID: "u1", Role: store.RoleUser, Content: "如何接入邮箱账号", Timestamp: "2026-01-01T00:00:00.000Z"},
			{
				ID:        "a1",
				Role:      store.RoleAssistant,
				Content:   "## 步骤\n\n1. 打开设置\n2. 添加账号",
				Sources:   []store.Source{store.Source(`{"title":"FAQ"}`), store.Source(`"manual.pdf"`)},
				Timestamp: "2026-01-01T00:00:01.000Z",
			},
			{ID: "e1", Role: store.RoleAssistant, Content: "抱歉", IsError: true},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleDoc())

	assert.Contains(t, md, "# 邮箱接入\n")
	assert.Contains(t, md, "会话 ID: `conv-1`")
	assert.Contains(t, md, "**用户** · 2026-01-01T00:00:00.000Z")
	assert.Contains(t, md, "**AI助教** · 2026-01-01T00:00:01.000Z")
	assert.Contains(t, md, "**AI助教（错误）**\n")
	assert.Contains(t, md, "- FAQ\n- manual.pdf\n")
}

func TestMarkdown_DefaultTitle(t *testing.T) {
	md := Markdown(Document{})
	assert.Equal(t, "# 对话记录\n\n", md)
}

func TestHTML(t *testing.T) {
	page, err := HTML(sampleDoc())
	require.NoError(t, err)

	assert.Contains(t, page, "<title>邮箱接入</title>")
	assert.Contains(t, page, "<h1>邮箱接入</h1>")
	assert.Contains(t, page, "<h2>步骤</h2>")
	assert.Contains(t, page, "<li>打开设置</li>")
	assert.Contains(t, page, "<strong>用户</strong>")
}

func TestHTML_EscapesRawHTML(t *testing.T) {
	doc := Document{
		Title: "<b>x</b>",
		Messages: []store.Message{
			{Role: store.RoleUser, Content: "<script>alert(1)</script>"},
		},
	}

	page, err := HTML(doc)
	require.NoError(t, err)

	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "<title>&lt;b&gt;x&lt;/b&gt;</title>")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"md", FormatMarkdown, false},
		{"Markdown", FormatMarkdown, false},
		{" html ", FormatHTML, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleDoc(), FormatMarkdown))
	assert.Contains(t, buf.String(), "# 邮箱接入")

	buf.Reset()
	require.NoError(t, Write(&buf, sampleDoc(), FormatHTML))
	assert.Contains(t, buf.String(), "<!DOCTYPE html>")

	assert.ErrorIs(t, Write(&buf, sampleDoc(), Format("pdf")), ErrUnknownFormat)
}

func TestFromConversation(t *testing.T) {
	doc := FromConversation(&store.Conversation{ConversationID: "c", Title: "t", Messages: []store.Message{{ID: "m"}}})
	assert.Equal(t, "c", doc.ConversationID)
	assert.Equal(t, "t", doc.Title)
	assert.Len(t, doc.Messages, 1)
}
