package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Cortado-Group/website-watchdog/internal/alerter"
	"github.com/Cortado-Group/website-watchdog/internal/config"
	"github.com/Cortado-Group/website-watchdog/internal/probe"
	"github.com/Cortado-Group/website-watchdog/internal/storage"
	"github.com/Cortado-Group/website-watchdog/internal/tui"
	"github.com/Cortado-Group/website-watchdog/internal/watchdog"
)

var rootCmd = &cobra.Command{
	Use:   "watchdog",
	Short: "Website monitoring with incident tracking and escalating alerts",
	Long: "Probes configured HTTP endpoints, records check results, and keeps one open\n" +
		"incident per failing target, escalating notifications as the failure persists.",
	SilenceUsage: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database and load targets from config",
	RunE:  runInit,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one check cycle over all enabled targets",
	RunE:  runCheck,
}

var statusCmd = &cobra.Command{
	Use:       "status [incidents|checks|stats|all]",
	Short:     "Show active incidents, recent checks, and statistics",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"incidents", "checks", "stats", "all"},
	RunE:      runStatus,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show a live dashboard of targets and incidents",
	RunE:  runDashboard,
}

var (
	configPath  string
	dbPath      string
	envPath     string
	concurrency int
	checkLimit  int
	verbose     bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(dashboardCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/targets.yaml", "Path to targets config")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to sqlite database (default: ~/.config/watchdog/watchdog.db)")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "Path to .env file with channel credentials")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	checkCmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of targets to check in parallel")
	statusCmd.Flags().IntVar(&checkLimit, "limit", 20, "Number of recent checks to show")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDatabase() (*storage.Database, error) {
	path := dbPath
	if path == "" {
		var err error
		path, err = config.GetDatabasePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
	}

	db, err := storage.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, tc := range cfg.Targets {
		target := tc.ToTarget()
		if err := db.UpsertTarget(&target); err != nil {
			return fmt.Errorf("failed to load target %q: %w", tc.Name, err)
		}
	}

	fmt.Printf("Loaded %d targets from %s\n", len(cfg.Targets), configPath)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	config.LoadEnv(envPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	w := watchdog.New(
		db,
		probe.NewHTTP(),
		alerter.New(cfg.Alerts, log),
		log,
		watchdog.WithConcurrency(concurrency),
	)

	// Failed targets are incidents, not process failures; only a dead store
	// makes the run itself fail.
	return w.Run(context.Background())
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	view := "all"
	if len(args) > 0 {
		view = args[0]
	}

	switch view {
	case "incidents":
		return showIncidents(db)
	case "checks":
		return showRecentChecks(db, checkLimit)
	case "stats":
		return showStats(db)
	case "all":
		if err := showIncidents(db); err != nil {
			return err
		}
		if err := showStats(db); err != nil {
			return err
		}
		return showRecentChecks(db, 10)
	default:
		return fmt.Errorf("unknown view %q: want incidents|checks|stats|all", view)
	}
}

func targetNames(db *storage.Database) (map[uint]string, error) {
	targets, err := db.ListTargets()
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(targets))
	for _, t := range targets {
		names[t.ID] = t.Name
	}
	return names, nil
}

func showIncidents(db *storage.Database) error {
	incidents, err := db.ListOpenIncidents()
	if err != nil {
		return err
	}

	if len(incidents) == 0 {
		fmt.Println("No active incidents")
		fmt.Println()
		return nil
	}

	names, err := targetNames(db)
	if err != nil {
		return err
	}

	fmt.Printf("\nActive Incidents (%d):\n\n", len(incidents))
	for _, inc := range incidents {
		name := names[inc.TargetID]
		fmt.Printf("#%d - %s\n", inc.ID, name)
		fmt.Printf("  Started:  %s\n", inc.StartedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Failures: %d consecutive\n", inc.FailureCount)
		fmt.Printf("  Alerts:   slack=%v email=%v sms=%v\n", inc.SlackAlerted, inc.EmailAlerted, inc.SMSAlerted)
		fmt.Println()
	}
	return nil
}

func showRecentChecks(db *storage.Database, limit int) error {
	checks, err := db.GetRecentChecks(limit)
	if err != nil {
		return err
	}

	names, err := targetNames(db)
	if err != nil {
		return err
	}

	fmt.Printf("\nRecent Checks (last %d):\n\n", limit)
	fmt.Printf("%-20s %-20s %-8s %-5s %-9s %s\n", "Time", "Target", "Status", "Code", "Time", "Error")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, c := range checks {
		code := "-"
		if c.StatusCode != nil {
			code = fmt.Sprintf("%d", *c.StatusCode)
		}
		responseTime := "-"
		if c.ResponseTime != nil {
			responseTime = fmt.Sprintf("%.0fms", *c.ResponseTime)
		}
		errMsg := "-"
		if c.ErrorMessage != nil {
			errMsg = *c.ErrorMessage
		}
		icon := "✓"
		if !c.Success() {
			icon = "✗"
		}
		fmt.Printf("%-20s %s %-18s %-8s %-5s %-9s %s\n",
			c.CreatedAt.Format("2006-01-02 15:04:05"),
			icon, names[c.TargetID], c.Status, code, responseTime, errMsg)
	}
	fmt.Println()
	return nil
}

func showStats(db *storage.Database) error {
	targets, err := db.ListTargets()
	if err != nil {
		return err
	}

	since := time.Now().Add(-24 * time.Hour)

	fmt.Printf("\n24-Hour Statistics:\n\n")
	fmt.Printf("%-20s %-8s %-15s %s\n", "Target", "Uptime", "Success/Total", "Avg Response")
	fmt.Println("------------------------------------------------------------")

	for _, t := range targets {
		total, successful, avg, err := db.GetCheckStats(t.ID, since)
		if err != nil {
			return err
		}
		uptime := float64(0)
		if total > 0 {
			uptime = float64(successful) / float64(total) * 100
		}
		avgStr := "-"
		if avg > 0 {
			avgStr = fmt.Sprintf("%.0fms", avg)
		}
		fmt.Printf("%-20s %-8s %-15s %s\n",
			t.Name,
			fmt.Sprintf("%.1f%%", uptime),
			fmt.Sprintf("%d/%d", successful, total),
			avgStr)
	}
	fmt.Println()
	return nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	p := tea.NewProgram(
		tui.NewDashboard(db),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}
