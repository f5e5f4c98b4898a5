package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"qaproof/internal/api"
	"qaproof/internal/auth"
	"qaproof/internal/config"
	"qaproof/internal/kv"
	"qaproof/internal/logging"
	"qaproof/internal/store"
)

var (
	// Global flags
	configPath string
	apiURL     string
	verbose    bool

	// Logger
	logger *zap.Logger

	// Shared app state, built in PersistentPreRunE
	app *appState
)

// appState wires the client, local store, and auth manager for one
// invocation.
type appState struct {
	cfg    *config.Config
	client *api.Client
	kv     kv.Store
	local  *store.LocalStore // nil with the file backend
	auth   *auth.Manager
}

func (a *appState) close() {
	if a.local != nil {
		_ = a.local.Close()
	}
	logging.CloseAll()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "qaproof",
	Short: "qaproof - collaborative QA-pair proofreading",
	Long: `qaproof reviews and corrects prompt/completion datasets, alone or in a team.

Work locally on a JSONL file without an account (guest mode), or sign in to
upload files, split a review task across users, and track progress.

Run 'qaproof review <file.jsonl>' to start the interactive review screen.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		app, err = newAppState(cmd.Context())
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func newAppState(ctx context.Context) (*appState, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}

	debug := cfg.Logging.Debug || verbose
	if err := logging.Initialize(cfg.Logging.Dir, debug, cfg.Logging.Level); err != nil {
		// Category logs are a diagnostic aid, not a requirement.
		logger.Warn("category logging unavailable", zap.Error(err))
	}
	logging.Boot("qaproof starting, api=%s", cfg.API.BaseURL)

	a := &appState{cfg: cfg}
	switch cfg.Storage.Backend {
	case "file":
		a.kv, err = kv.NewFileStore(cfg.Storage.StateDir)
	default:
		a.local, err = store.NewLocalStore(cfg.Storage.DatabasePath)
		if a.local != nil {
			a.kv = a.local
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}

	a.client = api.NewClient(cfg.API.BaseURL, cfg.GetAPITimeout())
	a.auth = auth.NewManager(a.client, a.kv)
	a.auth.Bootstrap(ctx)
	return a, nil
}

// requireAuth fails fast for commands that need a signed-in user.
func requireAuth() error {
	if app.auth.State() != auth.StateAuthenticated {
		return fmt.Errorf("not signed in; run 'qaproof auth login' first")
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.qaproof/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "override the API base URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(reviewCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
