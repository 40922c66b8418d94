// ABOUTME: Terminal rendering of messages and conversation lists
// ABOUTME: Uses fatih/color for roles and tabwriter for tables

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/mail-assistant/internal/store"
)

var (
	userLabel      = color.New(color.FgGreen, color.Bold)
	assistantLabel = color.New(color.FgCyan, color.Bold)
	errorLabel     = color.New(color.FgRed, color.Bold)
	dim            = color.New(color.FgHiBlack)
)

// printMessage writes one message with its author and sources.
func printMessage(w io.Writer, m store.Message) {
	switch {
	case m.Role == store.RoleUser:
		userLabel.Fprint(w, "你")
	case m.IsError:
		errorLabel.Fprint(w, "AI助教")
	default:
		assistantLabel.Fprint(w, "AI助教")
	}
	if m.Timestamp != "" {
		dim.Fprintf(w, "  %s", m.Timestamp)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.TrimSpace(m.Content))

	if len(m.Sources) > 0 {
		labels := make([]string, 0, len(m.Sources))
		for _, src := range m.Sources {
			labels = append(labels, src.Label())
		}
		dim.Fprintf(w, "来源: %s\n", strings.Join(labels, ", "))
	}
}

// printMessages writes a log separated by blank lines.
func printMessages(w io.Writer, msgs []store.Message) {
	for i, m := range msgs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printMessage(w, m)
	}
}

// printConversationTable lists saved conversations.
func printConversationTable(w io.Writer, convs []store.ConversationSummary) {
	if len(convs) == 0 {
		fmt.Fprintln(w, "No saved conversations.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tTITLE\tMESSAGES\tUPDATED")
	fmt.Fprintln(tw, "  --\t-----\t--------\t-------")
	for _, c := range convs {
		updated := c.UpdatedAt
		if updated == "" {
			updated = c.CreatedAt
		}
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n",
			truncate(c.ConversationID, 24),
			truncate(c.Title, 30),
			c.MessageCount,
			updated)
	}
	tw.Flush()
}

// truncate shortens s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
