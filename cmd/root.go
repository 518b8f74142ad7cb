package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/candidus/assessor/internal/app"
	"github.com/candidus/assessor/internal/config"
	"github.com/candidus/assessor/internal/logging"
	"github.com/candidus/assessor/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "assessor",
	Short: "Candidate assessment delivery",
	Long:  "Assessor delivers timed assessment components to candidates, scores them against a rubric and reports results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		candidate, err := resolveCandidate(cmd)
		if err != nil {
			return err
		}
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())
		return app.Run(cmd.Context(), s, app.RunOptions{CandidateID: candidate})
	},
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: assessor.yaml in the user config dir or working dir)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides ASSESSOR_DB env var)")
	rootCmd.PersistentFlags().String("candidate", "", "Candidate ID (default: ASSESSOR_CANDIDATE env var, then $USER)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(attemptsCmd)
	rootCmd.AddCommand(resultCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(rubricCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config and applies --db.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Driver == "sqlite" {
		p, err := resolveDBPath(cmd, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		cfg.Store.DSN = p
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured DSN, then ASSESSOR_DB env var and the default XDG path.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if configured != "" {
		return configured, store.EnsureDir(configured)
	}
	return store.DefaultDBPath()
}

// resolveCandidate returns the candidate ID using --candidate, then
// ASSESSOR_CANDIDATE, then the login name.
func resolveCandidate(cmd *cobra.Command) (string, error) {
	if c, _ := cmd.Flags().GetString("candidate"); c != "" {
		return c, nil
	}
	for _, env := range []string{"ASSESSOR_CANDIDATE", "USER", "USERNAME"} {
		if c := os.Getenv(env); c != "" {
			return c, nil
		}
	}
	return "", fmt.Errorf("no candidate: pass --candidate or set ASSESSOR_CANDIDATE")
}

// newLogger builds the process logger. Full-screen commands never log to
// the console.
func newLogger(cfg *config.Config, tui bool) (*zap.Logger, error) {
	lc := cfg.Log
	if tui {
		lc.Console = false
	}
	log, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return log, nil
}

// openSession loads configuration and wires a Session. tui silences
// console logging.
func openSession(cmd *cobra.Command, tui bool) (*app.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg, tui)
	if err != nil {
		return nil, err
	}
	return openSessionWith(cmd.Context(), cfg, log)
}

func openSessionWith(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app.Session, error) {
	s, err := app.NewSession(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open session: %w", err)
	}
	return s, nil
}
