package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"issuebot/internal/bot"
	"issuebot/internal/config"
	"issuebot/internal/github"
	"issuebot/internal/irc"
	"issuebot/internal/state"
)

var flags struct {
	server    string
	nick      string
	channels  []string
	stateFile string
	verbose   bool
}

var rootCmd = &cobra.Command{
	Use:   "issuebot",
	Short: "IRC bot that expands GitHub issue references and manages issues from chat",
	Long: `issuebot joins IRC channels, turns references like #15, repo#15 and
owner/repo#15 into GitHub URLs with live metadata, and lets channel
members open, close, comment on and search issues without leaving chat.

Configuration comes from the environment (or a .env file); flags
override it. A GITHUB_TOKEN is optional: without one the bot still
expands references to URLs but refuses anything that writes.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&flags.server, "server", "", "IRC server URL (irc:// or ircs://)")
	rootCmd.Flags().StringVar(&flags.nick, "nick", "", "IRC nick")
	rootCmd.Flags().StringSliceVarP(&flags.channels, "channel", "c", nil, "channel to join (repeatable)")
	rootCmd.Flags().StringVar(&flags.stateFile, "state-file", "", "path to the YAML state file")
	rootCmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flags.server != "" {
		cfg.ServerURL = flags.server
	}
	if flags.nick != "" {
		cfg.Nick = flags.nick
	}
	if len(flags.channels) > 0 {
		cfg.Channels = flags.channels
	}
	if flags.stateFile != "" {
		cfg.StateFile = flags.stateFile
	}
	if flags.verbose {
		cfg.Verbose = true
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// A held lock means another instance owns the file; run without
	// persistence rather than fight over it. A corrupt file is fatal:
	// starting fresh would clobber channel configuration on first save.
	var (
		store    *state.Store
		channels map[string]*state.Channel
		aliases  *state.Aliases
	)
	store, err = state.Open(cfg.StateFile)
	if err != nil {
		logger.Warn("state file locked, continuing without persistence",
			"path", cfg.StateFile, "error", err)
		store = nil
	} else {
		defer store.Close()
		channels, aliases, err = store.Load()
		if err != nil {
			return fmt.Errorf("loading state: %w", err)
		}
	}

	b := bot.New(cfg.Nick, channels, aliases)
	b.Logger = logger
	b.Store = store
	if cfg.GitHubToken != "" {
		b.GitHub = github.NewClient(cfg.GitHubToken)
	} else {
		logger.Warn("no GitHub token configured, running in URL-only mode")
	}

	conn, err := irc.Dial(irc.Config{
		ServerURL: cfg.ServerURL,
		Nick:      cfg.Nick,
		Password:  cfg.Password,
		Channels:  cfg.Channels,
		Rejoin:    cfg.Rejoin,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.ServerURL, err)
	}
	b.Say = func(target, text string) { conn.Say(ctx, target, text) }
	b.Part = conn.Part

	logger.Info("connected", "server", cfg.ServerURL, "nick", cfg.Nick, "channels", cfg.Channels)

	errc := make(chan error, 1)
	go func() { errc <- conn.Run(ctx) }()
	go func() {
		b.Run(ctx, conn.Events())
		errc <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}
		return nil
	}
}
