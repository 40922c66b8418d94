// Package transcript exports conversations for reading outside the assistant.
//
// Markdown output lists each message with its author, timestamp and cited
// sources. HTML output converts that Markdown with goldmark (GitHub
// flavored) and wraps it in a minimal page. Raw HTML inside messages is
// escaped, not rendered.
package transcript
