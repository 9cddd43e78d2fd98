package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dailydrip/newsforge/internal/config"
	"github.com/dailydrip/newsforge/internal/pipeline"
	"github.com/dailydrip/newsforge/internal/publish"
	"github.com/dailydrip/newsforge/internal/scheduler"
	"github.com/dailydrip/newsforge/internal/server"
	"github.com/dailydrip/newsforge/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	// Local .env is optional; env vars from the shell win either way.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsforge",
	Short:   "AI content generation and publishing pipeline",
	Long:    "Newsforge reads category feeds, extracts source articles, rewrites them with an LLM, scores the drafts, and publishes the ones that clear the quality bar.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsforge", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsforge/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, the LLM provider, and publishing.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline and store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		summary, err := st.GetSummary()
		if err != nil {
			return fmt.Errorf("getting summary: %w", err)
		}

		fmt.Println("Records:")
		fmt.Printf("  Total: %d\n", summary.Total)
		for _, status := range []string{
			store.StatusPending, store.StatusInProgress, store.StatusGenerated,
			store.StatusPublished, store.StatusFailed, store.StatusRejected,
		} {
			if n := summary.ByStatus[status]; n > 0 {
				fmt.Printf("  %s: %d\n", status, n)
			}
		}

		if len(summary.ByCategory) > 0 {
			fmt.Println("\nCategories:")
			for _, cs := range summary.ByCategory {
				fmt.Printf("  %s: %d records, avg score %.1f\n", cs.Category, cs.Count, cs.AvgScore)
			}
		}

		if len(summary.RecentHighQuality) > 0 {
			fmt.Println("\nReady to publish:")
			for _, rec := range summary.RecentHighQuality {
				fmt.Printf("  [%d] %d  %s\n", rec.ID, rec.QualityScore, rec.GeneratedTitle)
			}
		}
		return nil
	},
}

// --- run command ---

var (
	runCategories []string
	runLimit      int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run generation: read feeds, extract, rewrite, score",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		categories := runCategories
		if len(categories) == 0 {
			categories = cfg.CategoryNames()
		} else {
			for _, c := range categories {
				if len(cfg.FeedsFor(c)) == 0 {
					return fmt.Errorf("unknown category: %s", c)
				}
			}
		}

		pipe := pipeline.New(cfg, st)
		result := pipe.RunCategories(context.Background(), categories, runLimit)

		fmt.Println("\nGeneration run complete:")
		for _, cr := range result.Categories {
			fmt.Printf("  %s: %d scraped, %d generated, %d failed\n",
				cr.Category, cr.Scraped, cr.Generated, cr.Failed)
			for _, e := range cr.Errors {
				fmt.Printf("    error: %s\n", e)
			}
		}
		fmt.Printf("  Total: %d scraped, %d generated, %d failed\n",
			result.Scraped, result.Generated, result.Failed)
		return nil
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runCategories, "categories", nil, "Categories to run (default: all configured)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "Max new items per category (default from config)")
}

// --- publish command ---

var (
	publishIDs   []string
	publishLimit int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish generated records that clear the quality threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		pub := publish.New(st, cfg.Publishing.QualityThreshold, cfg.Publishing.AuthorName)

		var result *publish.Result
		if len(publishIDs) > 0 {
			ids := make([]int64, 0, len(publishIDs))
			for _, raw := range publishIDs {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid record ID: %s", raw)
				}
				ids = append(ids, id)
			}
			result, err = pub.PublishByIDs(ids)
		} else {
			result, err = pub.PublishEligible(time.Now(), publishLimit)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Published %d article(s)\n", len(result.Articles))
		for _, a := range result.Articles {
			fmt.Printf("  [%d] %s (%s)\n", a.ID, a.Title, a.Category)
		}
		for _, e := range result.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		return nil
	},
}

func init() {
	publishCmd.Flags().StringSliceVar(&publishIDs, "ids", nil, "Publish specific record IDs (all must be eligible)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Max records to publish (default: all eligible)")
}

// --- cleanup command ---

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old failed and rejected records, fail stale pending ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sched := newScheduler(st)
		result, err := sched.RunCleanup()
		if err != nil {
			return err
		}

		fmt.Println("Cleanup complete:")
		fmt.Printf("  Failed deleted: %d\n", result.FailedDeleted)
		fmt.Printf("  Rejected deleted: %d\n", result.RejectedDeleted)
		fmt.Printf("  Stale pending failed: %d\n", result.StaleFailed)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server with scheduled jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sched := newScheduler(st)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()

		pub := publish.New(st, cfg.Publishing.QualityThreshold, cfg.Publishing.AuthorName)
		srv := server.New(st, sched, pub, cfg.CategoryNames())

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(srv, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func newScheduler(st *store.Store) *scheduler.Scheduler {
	pipe := pipeline.New(cfg, st)
	pub := publish.New(st, cfg.Publishing.QualityThreshold, cfg.Publishing.AuthorName)
	return scheduler.New(cfg, st, pipe, pub)
}

func openStore() (*store.Store, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.Open(filepath.Join(dataDir, "newsforge.db"))
}
