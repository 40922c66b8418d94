// ABOUTME: Interactive chat loop for the mail-assistant CLI
// ABOUTME: Reads lines from stdin, sends messages and handles slash commands

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/mail-assistant/internal/conversation"
	"github.com/2389/mail-assistant/internal/resolver"
	"github.com/2389/mail-assistant/internal/transcript"
)

// errQuit ends the REPL without an error
var errQuit = errors.New("quit")

func (a *app) runREPL(ctx context.Context, in io.Reader) error {
	green := color.New(color.FgGreen)
	green.Fprintf(a.out, "mail-assistant connected to %s\n", a.cfg.API.BaseURL)
	if id := a.session.ConversationID(); id != "" {
		fmt.Fprintf(a.out, "Resuming conversation %s (%d messages)\n", id, len(a.session.Messages()))
	}
	fmt.Fprintln(a.out, "Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Fprintln(a.out)

	go a.watchEvents(ctx)

	a.session.OpenModal()
	defer a.session.CloseModal()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(a.out, "> ")

		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		var err error
		if strings.HasPrefix(input, "/") {
			err = a.handleCommand(ctx, input)
		} else {
			err = a.send(ctx, input, cliPageContext("chat"), false)
		}

		switch {
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, errSessionEnded):
			return err
		case err != nil:
			color.Red("[error] %v", err)
		}
		fmt.Fprintln(a.out)
	}
}

// handleCommand runs one slash command.
func (a *app) handleCommand(ctx context.Context, input string) error {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit", "/q":
		return errQuit
	case "/help":
		printREPLHelp(a.out)
		return nil
	case "/new":
		return a.cmdNew(ctx)
	case "/save":
		if a.session.SaveCurrentConversation(ctx) {
			fmt.Fprintln(a.out, "Conversation saved.")
			return nil
		}
		if a.sessionEnded() {
			return errSessionEnded
		}
		return errors.New("nothing to save yet, or the backend refused it")
	case "/status":
		return a.cmdStatus()
	case "/messages":
		printMessages(a.out, a.session.Messages())
		return nil
	case "/list":
		return a.cmdList(ctx)
	case "/show":
		return a.cmdShow(ctx, args)
	case "/delete":
		return a.cmdDelete(ctx, args)
	case "/clear-all":
		return a.cmdClearAll(ctx)
	case "/history":
		return a.cmdHistory(ctx)
	case "/clear-history":
		return a.cmdClearHistory(ctx)
	case "/export":
		return a.replExport(args)
	case "/hide":
		return a.cmdBot(ctx, []string{"hide"})
	case "/show-bot":
		return a.cmdBot(ctx, []string{"show"})
	case "/pos":
		return a.cmdBot(ctx, append([]string{"pos"}, args...))
	case "/reload":
		a.session.Reload(ctx)
		fmt.Fprintf(a.out, "Reloaded %d messages from local storage.\n", len(a.session.Messages()))
		return nil
	case "/quick":
		return a.quickQuestion(ctx, args)
	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// replExport writes the current conversation: /export [markdown|html] [file]
func (a *app) replExport(args []string) error {
	format := transcript.FormatMarkdown
	var path string
	if len(args) > 0 {
		f, err := transcript.ParseFormat(args[0])
		if err != nil {
			return err
		}
		format = f
	}
	if len(args) > 1 {
		path = args[1]
	}

	doc := transcript.Document{
		ConversationID: a.session.ConversationID(),
		Messages:       a.session.Messages(),
	}
	return writeTranscript(a.out, path, doc, format)
}

// quickQuestion lists the suggested questions, or asks the nth one.
func (a *app) quickQuestion(ctx context.Context, args []string) error {
	keys := resolver.New().Keys()
	if len(args) == 0 {
		for i, k := range keys {
			fmt.Fprintf(a.out, "  %d. %s\n", i+1, k)
		}
		return nil
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(keys) {
		return fmt.Errorf("pick a question between 1 and %d", len(keys))
	}
	question := keys[n-1]
	fmt.Fprintf(a.out, "%s %s\n", userLabel.Sprint("你"), question)
	return a.send(ctx, question, cliPageContext("quick"), true)
}

// watchEvents logs session state changes until ctx is done.
func (a *app) watchEvents(ctx context.Context) {
	for ev := range a.session.Subscribe(ctx) {
		attrs := []any{"type", ev.Type}
		switch ev.Type {
		case conversation.EventLoadingChanged:
			attrs = append(attrs, "loading", ev.Loading)
		case conversation.EventConversationChanged, conversation.EventReloaded:
			attrs = append(attrs, "conversation_id", ev.ConversationID)
		case conversation.EventMessageAdded:
			attrs = append(attrs, "role", ev.Message.Role, "is_error", ev.Message.IsError)
		}
		a.logger.Debug("session event", attrs...)
	}
}

func printREPLHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  /new                    Save and start a new conversation")
	fmt.Fprintln(w, "  /save                   Save the current conversation")
	fmt.Fprintln(w, "  /status                 Show the current session")
	fmt.Fprintln(w, "  /messages               Print the current conversation")
	fmt.Fprintln(w, "  /list                   List saved conversations")
	fmt.Fprintln(w, "  /show <id>              Show a saved conversation")
	fmt.Fprintln(w, "  /delete <id>            Delete a saved conversation")
	fmt.Fprintln(w, "  /clear-all              Delete every saved conversation")
	fmt.Fprintln(w, "  /history                Server-side history of this conversation")
	fmt.Fprintln(w, "  /clear-history          Clear server-side history of this conversation")
	fmt.Fprintln(w, "  /export [format] [file] Export this conversation (markdown or html)")
	fmt.Fprintln(w, "  /quick [n]              List suggested questions, or ask number n")
	fmt.Fprintln(w, "  /hide, /show-bot        Hide or show the floating assistant")
	fmt.Fprintln(w, "  /pos <x> <y>            Move the floating assistant")
	fmt.Fprintln(w, "  /reload                 Reload state from local storage")
	fmt.Fprintln(w, "  /quit                   Exit")
}
