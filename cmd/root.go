package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/shiftr/internal/config"
	"github.com/Tiliavir/shiftr/internal/confirm"
	"github.com/Tiliavir/shiftr/internal/log"
	"github.com/Tiliavir/shiftr/internal/publish"
	"github.com/Tiliavir/shiftr/internal/roster"
	"github.com/Tiliavir/shiftr/internal/shift"
	"github.com/Tiliavir/shiftr/internal/storage"
	"github.com/Tiliavir/shiftr/internal/timecalc"
)

var (
	cfgFile   string
	dataDir   string
	orgID     string
	logLevel  string
	logFormat string
)

// app holds the dependencies shared by all commands. It is set up before
// every command runs and torn down afterwards.
var app struct {
	cfg       *config.Config
	store     *storage.BoltStore
	machine   *shift.Machine
	refresher *roster.Refresher
	client    *publish.Client
	prompts   *confirm.Manager
}

var rootCmd = &cobra.Command{
	Use:   "shiftr",
	Short: "shiftr – employee shift tracker",
	Long: `shiftr tracks employee shifts per organization: workers go on and off
duty, completed shifts are folded into a rolling 30 day ledger, and
leaderboards and a live roster of who is on duty are computed on demand.
All data is stored in a single bbolt database in ~/.shiftr/.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.shiftr/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Database directory (overrides data_dir)")
	rootCmd.PersistentFlags().StringVar(&orgID, "org", "default", "Organization to operate on")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console, json")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(endCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rosterCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(resetAllCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(serveCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.Format == "json",
	})

	dir := cfg.DataDir
	if dir == "" {
		if dir, err = storage.BaseDir(); err != nil {
			exitWith(err)
		}
	}
	store, err := storage.Open(dir)
	if err != nil {
		exitWith(err)
	}
	loc, err := timecalc.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	var publisher roster.Publisher = publish.Log{}
	if cfg.Publish.Enabled() {
		app.client = publish.NewClient(context.Background(), cfg.Publish.APIBase, cfg.Publish.BotToken, cfg.Publish.Timeout)
		publisher = app.client
	}
	refresher := roster.NewRefresher(store, publisher, roster.WithTimeout(cfg.Publish.Timeout))
	refresher.Start()

	app.cfg = cfg
	app.store = store
	app.refresher = refresher
	app.machine = shift.New(store, shift.WithLocation(loc), shift.WithHook(refresher.Trigger))
	app.prompts = confirm.NewManager()
	return nil
}

// teardown flushes pending roster renders before the database closes.
func teardown(*cobra.Command, []string) error {
	if app.refresher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Publish.Timeout+5*time.Second)
		defer cancel()
		if err := app.refresher.Close(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "Warning: roster update did not finish:", err)
		}
	}
	if app.store != nil {
		return app.store.Close()
	}
	return nil
}

// exitWith prints err and exits: 1 when a precondition was not met,
// 2 for storage and other failures.
func exitWith(err error) {
	fmt.Fprintln(os.Stderr, describe(err))
	switch {
	case errors.Is(err, shift.ErrAlreadyActive),
		errors.Is(err, shift.ErrNotActive),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, roster.ErrUnbound),
		errors.Is(err, confirm.ErrExpired):
		os.Exit(1)
	default:
		os.Exit(2)
	}
}

// describe turns known errors into user-facing messages.
func describe(err error) string {
	switch {
	case errors.Is(err, shift.ErrAlreadyActive):
		return "You are already on duty."
	case errors.Is(err, shift.ErrNotActive):
		return "You are not on duty."
	case errors.Is(err, storage.ErrNotFound):
		return "No data found."
	case errors.Is(err, roster.ErrUnbound):
		return "No roster message configured. Run: shiftr roster panel --channel <id>"
	default:
		return err.Error()
	}
}
