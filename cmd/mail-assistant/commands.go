// ABOUTME: One-shot subcommands of the mail-assistant CLI
// ABOUTME: Each maps onto a single session operation and prints the result

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/mail-assistant/internal/client"
	"github.com/2389/mail-assistant/internal/store"
	"github.com/2389/mail-assistant/internal/transcript"
)

// cliPageContext tells the backend where a question came from
func cliPageContext(mode string) client.PageContext {
	return client.PageContext{"client": "mail-assistant", "mode": mode}
}

// send runs one turn and prints the reply. Any unauthorized failure ends the session.
func (a *app) send(ctx context.Context, text string, pc client.PageContext, openModal bool) error {
	var err error
	if openModal {
		err = a.session.OpenModalWithMessage(ctx, text, pc)
	} else {
		err = a.session.SendMessage(ctx, text, pc)
	}
	if errors.Is(err, client.ErrUnauthorized) || a.sessionEnded() {
		return errSessionEnded
	}
	if err != nil {
		return err
	}

	if last, ok := a.session.LastMessage(); ok && last.Role == store.RoleAssistant {
		printMessage(a.out, last)
	}
	return nil
}

func (a *app) cmdAsk(ctx context.Context, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("usage: mail-assistant ask <message>")
	}
	return a.send(ctx, text, cliPageContext("ask"), false)
}

func (a *app) cmdNew(ctx context.Context) error {
	a.session.ClearConversation(ctx)
	if a.sessionEnded() {
		return errSessionEnded
	}
	fmt.Fprintln(a.out, "Started a new conversation.")
	return nil
}

func (a *app) cmdStatus() error {
	cyan := color.New(color.FgCyan)

	cyan.Fprintln(a.out, "Session")
	convID := a.session.ConversationID()
	if convID == "" {
		convID = "(none)"
	}
	fmt.Fprintf(a.out, "  Backend:       %s\n", a.cfg.API.BaseURL)
	fmt.Fprintf(a.out, "  Conversation:  %s\n", convID)
	fmt.Fprintf(a.out, "  Messages:      %d\n", len(a.session.Messages()))
	if e := a.session.Error(); e != "" {
		fmt.Fprintf(a.out, "  Last error:    %s\n", e)
	}
	if a.absence != nil {
		for _, r := range a.absence.Routes() {
			fmt.Fprintf(a.out, "  Local answers: %s since %s (%d skipped, re-probe %s)\n",
				r.Key, r.Since.Format(time.TimeOnly), r.Skipped, r.ReprobeAt.Format(time.TimeOnly))
		}
	}

	fmt.Fprintln(a.out)
	cyan.Fprintln(a.out, "Floating assistant")
	fmt.Fprintf(a.out, "  Hidden:        %t\n", a.session.BotHidden())
	if pos, ok := a.session.BotPosition(); ok {
		fmt.Fprintf(a.out, "  Position:      %g, %g\n", pos.X, pos.Y)
	} else {
		fmt.Fprintln(a.out, "  Position:      default")
	}
	return nil
}

func (a *app) cmdList(ctx context.Context) error {
	printConversationTable(a.out, a.session.GetConversationsList(ctx))
	if a.sessionEnded() {
		return errSessionEnded
	}
	return nil
}

func (a *app) cmdShow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mail-assistant show <id>")
	}
	conv := a.session.GetConversationDetail(ctx, args[0])
	if a.sessionEnded() {
		return errSessionEnded
	}
	if conv == nil {
		return fmt.Errorf("conversation %s is unavailable", args[0])
	}

	if conv.Title != "" {
		color.New(color.FgYellow).Fprintln(a.out, conv.Title)
		fmt.Fprintln(a.out)
	}
	printMessages(a.out, conv.Messages)
	return nil
}

// cmdExport writes a transcript of a saved conversation, or of the
// current one when the id is "current".
func (a *app) cmdExport(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: mail-assistant export <id|current> [-format markdown|html] [-o file]")
	}
	id := args[0]

	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	formatName := fs.String("format", "markdown", "markdown or html")
	outPath := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	format, err := transcript.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	var doc transcript.Document
	if id == "current" {
		doc = transcript.Document{
			ConversationID: a.session.ConversationID(),
			Messages:       a.session.Messages(),
		}
	} else {
		conv := a.session.GetConversationDetail(ctx, id)
		if a.sessionEnded() {
			return errSessionEnded
		}
		if conv == nil {
			return fmt.Errorf("conversation %s is unavailable", id)
		}
		doc = transcript.FromConversation(conv)
	}

	return writeTranscript(a.out, *outPath, doc, format)
}

func writeTranscript(stdout io.Writer, path string, doc transcript.Document, format transcript.Format) error {
	if path == "" {
		return transcript.Write(stdout, doc, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := transcript.Write(f, doc, format); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "Transcript written to %s\n", path)
	return nil
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mail-assistant delete <id>")
	}
	if !a.session.DeleteConversation(ctx, args[0]) {
		if a.sessionEnded() {
			return errSessionEnded
		}
		return fmt.Errorf("could not delete conversation %s", args[0])
	}
	fmt.Fprintf(a.out, "Deleted conversation %s.\n", args[0])
	return nil
}

func (a *app) cmdClearAll(ctx context.Context) error {
	if !a.session.ClearAllConversations(ctx) {
		if a.sessionEnded() {
			return errSessionEnded
		}
		return fmt.Errorf("could not clear saved conversations")
	}
	fmt.Fprintln(a.out, "All saved conversations deleted.")
	return nil
}

func (a *app) cmdHistory(ctx context.Context) error {
	msgs, err := a.session.History(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		return errSessionEnded
	}
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(a.out, "No server-side history.")
		return nil
	}
	printMessages(a.out, msgs)
	return nil
}

func (a *app) cmdClearHistory(ctx context.Context) error {
	ok, err := a.session.ClearRemoteHistory(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		return errSessionEnded
	}
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Nothing to clear.")
		return nil
	}
	fmt.Fprintln(a.out, "Server-side history cleared.")
	return nil
}

// cmdBot handles "show", "hide" and "pos <x> <y>".
func (a *app) cmdBot(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: mail-assistant bot show|hide|pos <x> <y>")
	}

	switch args[0] {
	case "show":
		a.session.ShowBot(ctx)
		fmt.Fprintln(a.out, "Floating assistant shown.")
	case "hide":
		a.session.HideBot(ctx)
		fmt.Fprintln(a.out, "Floating assistant hidden.")
	case "pos":
		pos, err := parsePosition(args[1:])
		if err != nil {
			return err
		}
		a.session.SetBotPosition(ctx, pos)
		fmt.Fprintf(a.out, "Floating assistant moved to %g, %g.\n", pos.X, pos.Y)
	default:
		return fmt.Errorf("unknown bot command: %s", args[0])
	}
	return nil
}

func parsePosition(args []string) (store.Position, error) {
	if len(args) != 2 {
		return store.Position{}, fmt.Errorf("usage: pos <x> <y>")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return store.Position{}, fmt.Errorf("invalid x %q: %w", args[0], err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return store.Position{}, fmt.Errorf("invalid y %q: %w", args[1], err)
	}
	return store.Position{X: x, Y: y}, nil
}
