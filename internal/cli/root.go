package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/inboxdesk/internal/app"
	"github.com/nhle/inboxdesk/internal/backend"
	"github.com/nhle/inboxdesk/internal/config"
	"github.com/nhle/inboxdesk/internal/credential"
	"github.com/nhle/inboxdesk/internal/store"
	appsync "github.com/nhle/inboxdesk/internal/sync"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the inboxdesk command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "inboxdesk",
		Short:        "Terminal dashboard for a unified inbox, AI reply drafts and a knowledge base chat",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigPath(), "Path to the config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log.level (trace, debug, info, warn, error)")

	cmd.AddCommand(newTokenCmd())

	cmd.SetErr(os.Stderr)
	cmd.SetOut(os.Stdout)

	return cmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDashboard(opts *rootOptions) error {
	firstRun := !config.Exists(opts.configPath)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", opts.configPath, err)
	}

	logFile, err := config.OpenLogFile(cfg.Log.File)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger, err := config.NewLogger(logFile, cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.Info("starting inboxdesk",
		"config", opts.configPath,
		"mail_url", cfg.Backend.MailURL,
		"chat_url", cfg.Backend.ChatURL,
		"first_run", firstRun,
	)

	token, err := credential.BackendToken()
	if err != nil {
		logger.Warn("reading backend token failed, continuing without one", "error", err)
	}
	clientOpts := []backend.Option{
		backend.WithToken(token),
		backend.WithLogger(logger.With("component", "backend")),
	}

	mail := backend.NewMailClient(backend.NewClient(cfg.Backend.MailURL, cfg.Timeout(), clientOpts...))
	chat := backend.NewChatClient(backend.NewClient(cfg.Backend.ChatURL, cfg.Timeout(), clientOpts...))

	s, err := store.NewSQLiteStore()
	if err != nil {
		return err
	}
	defer s.Close()

	poller := appsync.New(mail, s, appsync.Options{
		Folder:   cfg.Inbox.Folder,
		Interval: cfg.RefreshInterval(),
		Timeout:  cfg.Timeout(),
		Logger:   logger.With("component", "poller"),
	})
	defer poller.Stop()

	root := app.New(app.Deps{
		Config:     cfg,
		ConfigPath: opts.configPath,
		Store:      s,
		Mail:       mail,
		Chat:       chat,
		Poller:     poller,
		Logger:     logger,
		FirstRun:   firstRun,
		Validate:   app.ValidateBackend(clientOpts...),
	})

	p := tea.NewProgram(root, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error("dashboard exited with error", "error", err)
		return fmt.Errorf("running dashboard: %w", err)
	}
	logger.Info("inboxdesk stopped")
	return nil
}
