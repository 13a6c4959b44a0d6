package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/NewsDigest/internal/collect"
	"github.com/TobiSchelling/NewsDigest/internal/config"
	"github.com/TobiSchelling/NewsDigest/internal/database"
	"github.com/TobiSchelling/NewsDigest/internal/digest"
	"github.com/TobiSchelling/NewsDigest/internal/pipeline"
	"github.com/TobiSchelling/NewsDigest/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsdigest",
	Short:   "Daily news digests with credibility checks",
	Long:    "newsdigest aggregates regional news feeds, flags uncorroborated stories, watches markets and keywords, and assembles a daily digest.",
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
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(marketCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsdigest", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsdigest/",
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
		fmt.Println("Edit it to configure feeds, sections, market instruments, and the summarizer.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and history status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		last, err := db.GetLastRunDate()
		if err != nil {
			return fmt.Errorf("getting last run: %w", err)
		}

		feeds := 0
		for _, g := range cfg.FeedGroups() {
			feeds += len(g.Feeds)
		}

		fmt.Printf("Today: %s\n", database.GetToday())
		if last == "" {
			fmt.Println("Last digest: never")
		} else {
			fmt.Printf("Last digest: %s\n", database.FormatPeriodDisplay(last))
		}
		fmt.Println("\nSources:")
		fmt.Printf("  Feed groups: %d\n", len(cfg.FeedGroups()))
		fmt.Printf("  Feeds: %d\n", feeds)
		fmt.Printf("  NewsAPI: %v\n", cfg.Sources.APIs.NewsAPI.Enabled)
		fmt.Println("\nHistory:")
		fmt.Printf("  Digests: %d\n", stats.Digests)
		fmt.Printf("  Days with digests: %d\n", stats.DaysWithDigests)
		fmt.Printf("  Articles seen: %d\n", stats.ArticlesSeen)
		fmt.Printf("  Flagged likely fake: %d\n", stats.LikelyFake)
		fmt.Printf("  Market snapshots: %d\n", stats.MarketSnapshots)
		fmt.Printf("\nDatabase: %s\n", db.Path())
		return nil
	},
}

// --- collect command ---

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch configured feeds and report what would enter the digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Println("Collecting articles from sources...")
		collector := collect.NewCollector(cfg, collect.NewFeedSource(cfg.FetchTimeout()))
		result := collector.Collect(ctx)

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  Kept: %d\n", len(result.Articles))
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		fmt.Printf("  Feeds failed: %d\n", result.Failed)

		if len(result.Sources) > 0 {
			fmt.Println("\nArticles by group:")
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

// --- run command ---

var (
	dryRun     bool
	noStore    bool
	outputPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> corroborate -> classify -> market -> summarize -> store",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps := pipeline.DefaultDeps(cfg)

		if cfg.Output.Store && !noStore && !dryRun {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			deps.Store = db
		}

		pipe := pipeline.New(cfg, deps)

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun()
		} else {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			result = pipe.Run(ctx)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if dryRun {
			return nil
		}

		if outputPath != "" {
			if err := digest.SaveFile(result.Digest, outputPath); err != nil {
				return fmt.Errorf("writing digest: %w", err)
			}
			fmt.Printf("\nDigest written to %s\n", outputPath)
		}

		fmt.Println("\nPipeline complete! Run 'newsdigest show' or 'newsdigest serve' to read the digest.")
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().BoolVar(&noStore, "no-store", false, "Do not record the digest in history")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Also write the digest JSON to this file")
}

// --- history command ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored digests",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.GetAllDigests()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No digests stored yet. Create one with: newsdigest run")
			return nil
		}

		fmt.Printf("%s  %8s  %8s  %6s  %s\n",
			runewidth.FillRight("Date", 14), "Articles", "Fake", "Alerts", "Top story")
		for _, r := range records {
			fmt.Printf("%s  %8d  %8d  %6d  %s\n",
				runewidth.FillRight(database.FormatPeriodDisplay(r.PeriodID), 14),
				r.ArticleCount, r.LikelyFakeCount, r.AlertCount,
				runewidth.Truncate(topStory(r), 48, "..."))
		}
		return nil
	},
}

// topStory returns the first section item of a stored digest.
func topStory(r database.DigestRecord) string {
	d, err := r.Digest()
	if err != nil {
		return ""
	}
	for _, name := range d.SectionOrder {
		if items := d.Sections[name]; len(items) > 0 {
			return items[0].Title
		}
	}
	return ""
}

// --- show command ---

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show [period]",
	Short: "Print a stored digest (latest by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var rec *database.DigestRecord
		if len(args) == 1 {
			rec, err = db.GetDigest(args[0])
		} else {
			rec, err = db.GetLatestDigest()
		}
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no digest found")
		}

		if showJSON {
			fmt.Println(rec.BodyJSON)
		} else {
			fmt.Print(rec.BodyMarkdown)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the JSON document instead of Markdown")
}

// --- market command ---

var marketLimit int

var marketCmd = &cobra.Command{
	Use:   "market [instrument]",
	Short: "Show stored market snapshots for an instrument",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		points, err := db.GetMarketHistory(args[0], marketLimit)
		if err != nil {
			return err
		}
		if len(points) == 0 {
			fmt.Printf("No snapshots stored for %s.\n", args[0])
			return nil
		}

		threshold := 0.0
		for _, inst := range cfg.Market.Instruments {
			if inst.Key == args[0] {
				threshold = cfg.Threshold(inst.Kind)
			}
		}

		for _, p := range points {
			mark := ""
			if threshold > 0 && abs(p.PercentChange) >= threshold {
				mark = " !"
			}
			fmt.Printf("%s  %12.2f  %+7.2f%%%s\n",
				runewidth.FillRight(database.FormatPeriodDisplay(p.PeriodID), 14),
				p.Last, p.PercentChange, mark)
		}
		return nil
	},
}

func init() {
	marketCmd.Flags().IntVarP(&marketLimit, "limit", "n", 14, "Number of snapshots to show")
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if !cmd.Flags().Changed("port") && cfg.Server.Port != 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "newsdigest.db"))
}
