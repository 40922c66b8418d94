// ABOUTME: Entry point for the mail-assistant terminal client
// ABOUTME: Chats with the console's AI assistant and manages saved conversations

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/mail-assistant/internal/absence"
	"github.com/2389/mail-assistant/internal/auth"
	"github.com/2389/mail-assistant/internal/client"
	"github.com/2389/mail-assistant/internal/config"
	"github.com/2389/mail-assistant/internal/conversation"
	"github.com/2389/mail-assistant/internal/store"
)

// Version is set at build time.
var version = "dev"

// envToken names the environment variable holding the operator token
const envToken = "MAIL_ASSISTANT_TOKEN"

// absenceCacheSize bounds how many absent routes are remembered
const absenceCacheSize = 16

// errSessionEnded is returned once the backend rejects the operator's token
var errSessionEnded = errors.New("session ended: please log in again")

func main() {
	flag.Usage = printUsage
	configPath := flag.String("config", "", "Path to config file (YAML or TOML)")
	flag.Parse()

	cmd := "chat"
	args := flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "help", "-h", "--help":
		printUsage()
		return
	case "version":
		fmt.Println("mail-assistant", version)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, *configPath, os.Stdout, os.Stderr)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	switch cmd {
	case "chat":
		err = a.runREPL(ctx, os.Stdin)
	case "ask":
		err = a.cmdAsk(ctx, args)
	case "new":
		err = a.cmdNew(ctx)
	case "status":
		err = a.cmdStatus()
	case "list":
		err = a.cmdList(ctx)
	case "show":
		err = a.cmdShow(ctx, args)
	case "export":
		err = a.cmdExport(ctx, args)
	case "delete":
		err = a.cmdDelete(ctx, args)
	case "clear-all":
		err = a.cmdClearAll(ctx)
	case "history":
		err = a.cmdHistory(ctx)
	case "clear-history":
		err = a.cmdClearHistory(ctx)
	case "bot":
		err = a.cmdBot(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}

func printUsage() {
	yellow := color.New(color.FgYellow)

	fmt.Println("Usage: mail-assistant [-config path] <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  chat                        Interactive chat (default)")
	fmt.Println("  ask <message>               Send one message and print the reply")
	fmt.Println("  new                         Save and clear the current conversation")
	fmt.Println("  status                      Show the current session")
	fmt.Println("  history                     Show the server-side history of the current conversation")
	fmt.Println("  clear-history               Clear the server-side history of the current conversation")
	fmt.Println("  list                        List saved conversations")
	fmt.Println("  show <id>                   Show a saved conversation")
	fmt.Println("  export <id|current> [flags] Export a transcript (-format markdown|html, -o file)")
	fmt.Println("  delete <id>                 Delete a saved conversation")
	fmt.Println("  clear-all                   Delete every saved conversation")
	fmt.Println("  bot show|hide|pos <x> <y>   Floating assistant settings")
	fmt.Println("  version                     Print the version")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  MAIL_ASSISTANT_CONFIG       Config file path")
	fmt.Println("  MAIL_ASSISTANT_TOKEN        Operator token (overrides api.token)")
	fmt.Println()
}

// app wires the session to its collaborators for one CLI invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	storage store.Storage
	absence *absence.Cache
	client  *client.Client
	session *conversation.Session
	out     io.Writer

	// unauthorized is closed when the backend rejects the token
	unauthorized     chan struct{}
	unauthorizedOnce sync.Once
}

func newApp(ctx context.Context, configPath string, out, logOut io.Writer) (*app, error) {
	cfg, err := config.LoadOrDefault(config.ResolvePath(configPath))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, logOut)
	slog.SetDefault(logger)

	storage, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:          cfg,
		logger:       logger,
		storage:      storage,
		out:          out,
		unauthorized: make(chan struct{}),
	}
	if cfg.Assistant.RouteAbsenceTTL > 0 {
		a.absence = absence.New(cfg.Assistant.RouteAbsenceTTL, absenceCacheSize)
	}

	token := loadToken(cfg.API)
	if err := token.Check(time.Now()); errors.Is(err, auth.ErrExpiredToken) {
		logger.Warn("operator token has expired", "expires_at", token.ExpiresAt())
	}

	c, err := client.New(client.Options{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        cfg.API.Timeout,
		Token:          token,
		Absence:        a.absence,
		OnUnauthorized: a.onUnauthorized,
		Logger:         logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating client: %w", err)
	}
	a.client = c

	s, err := conversation.NewSession(ctx, conversation.Options{
		Transport: c,
		Storage:   storage,
		OpenDelay: cfg.Assistant.OpenDelay,
		Logger:    logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating session: %w", err)
	}
	a.session = s

	return a, nil
}

// onUnauthorized ends the operator's session on the first 401.
// It may be called from any goroutine that issues requests.
func (a *app) onUnauthorized(err error) {
	a.logger.Error("backend rejected the operator token", "error", err)
	a.unauthorizedOnce.Do(func() { close(a.unauthorized) })
}

// sessionEnded reports whether the backend has rejected the token.
func (a *app) sessionEnded() bool {
	select {
	case <-a.unauthorized:
		return true
	default:
		return false
	}
}

// Close releases the session, the absence cache and the storage.
func (a *app) Close() {
	if a.session != nil {
		a.session.Close()
		a.session = nil
	}
	if a.absence != nil {
		a.absence.Close()
		a.absence = nil
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Error("failed to close storage", "error", err)
		}
		a.storage = nil
	}
}

func openStorage(cfg config.StorageConfig) (store.Storage, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStorage(), nil
	default:
		s, err := store.NewSQLiteStorage(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening storage: %w", err)
		}
		return s, nil
	}
}

// loadToken prefers $MAIL_ASSISTANT_TOKEN, then api.token, then the token file.
func loadToken(cfg config.APIConfig) auth.Token {
	if os.Getenv(envToken) == "" && cfg.Token != "" {
		return auth.ParseToken(cfg.Token)
	}
	path := cfg.TokenFile
	if path == "" {
		path = auth.DefaultTokenPath("mail-assistant")
	}
	return auth.LoadToken(envToken, path)
}
