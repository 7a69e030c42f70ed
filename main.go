package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stefanbuck/random-k8s/config"
	"github.com/stefanbuck/random-k8s/glossary"
	"github.com/stefanbuck/random-k8s/scheduler"
	"github.com/stefanbuck/random-k8s/selector"
	"github.com/stefanbuck/random-k8s/sitemap"
	"github.com/stefanbuck/random-k8s/storage"
)

func main() {
	setupLogging("info")

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "random-k8s",
		Short:         "Post a random page of the Kubernetes documentation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.GetConfigPath(), "path to the YAML config file")

	root.AddCommand(
		newRunCmd(&configPath),
		newServeCmd(&configPath),
		newURLsCmd(&configPath),
		newStatusCmd(&configPath),
		newGlossaryCmd(),
	)
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Publish one post and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []config.LoadOption
			if dryRun {
				opts = append(opts, config.WithDryRun())
			}
			cfg, err := loadConfig(*configPath, opts...)
			if err != nil {
				return err
			}

			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			_, err = app.runOnce(ctx)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the post instead of publishing it")
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Publish posts on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Schedule == "" {
				return errors.New("serve requires a schedule in the config")
			}

			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			sched, err := scheduler.NewScheduler(cfg.Timezone)
			if err != nil {
				return fmt.Errorf("initialize scheduler: %w", err)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if err := sched.Schedule(cfg.Schedule, func() {
				app.scheduledRun(ctx)
				slog.Info("next post scheduled", "at", sched.Next())
			}); err != nil {
				return fmt.Errorf("schedule posts: %w", err)
			}
			sched.Start()
			defer sched.Stop()
			slog.Info("posts scheduled", "schedule", cfg.Schedule, "timezone", cfg.Timezone, "next", sched.Next())

			<-ctx.Done()
			slog.Info("stopped")
			return nil
		},
	}
}

func newURLsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "urls",
		Short: "List the tweetable documentation URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, config.WithDryRun())
			if err != nil {
				return err
			}

			loader := sitemap.NewLoader(sitemap.WithTimeout(cfg.FetchTimeout()))
			urls, err := loader.Load(cmd.Context(), cfg.Sitemap)
			if err != nil {
				return fmt.Errorf("load sitemap: %w", err)
			}

			tweetable, err := selector.Tweetable(urls, cfg.SelectorRules())
			if err != nil {
				return err
			}
			for _, u := range tweetable {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			slog.Info("listed tweetable URLs", "sitemap", len(urls), "tweetable", len(tweetable))
			return nil
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the post history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, config.WithDryRun())
			if err != nil {
				return err
			}

			db, err := storage.NewDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			count, err := db.GetPostCount(ctx)
			if err != nil {
				return fmt.Errorf("count posts: %w", err)
			}
			fmt.Fprintf(out, "posts: %d\n", count)

			last, err := db.GetLastPost(ctx)
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("get last post: %w", err)
			}
			fmt.Fprintf(out, "last:  %s %s (%s)\n", last.PostedAt.Format("2006-01-02 15:04"), last.URL, last.TweetID)

			if lastRun, err := db.GetSetting(ctx, settingLastRun); err == nil {
				fmt.Fprintf(out, "run:   %s\n", lastRun)
			}
			return nil
		},
	}
}

func newGlossaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glossary",
		Short: "Manage the glossary entries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "build <glossary-dir> <output.json>",
		Short: "Build the glossary file from the Kubernetes website sources",
		Long: "Build reads content/en/docs/reference/glossary of a kubernetes/website\n" +
			"checkout and writes the entries as JSON for the glossary_path setting.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := glossary.Build(args[0])
			if err != nil {
				return fmt.Errorf("build glossary: %w", err)
			}
			if err := glossary.Save(args[1], entries); err != nil {
				return err
			}
			slog.Info("glossary written", "path", args[1], "entries", len(entries))
			return nil
		},
	})
	return cmd
}

func loadConfig(path string, opts ...config.LoadOption) (*config.Config, error) {
	cfg, err := config.Load(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	setupLogging(cfg.LogLevel)
	slog.Info("config loaded", "path", path, "dry_run", cfg.DryRun)
	return cfg, nil
}

// setupLogging installs a JSON logger on stderr at the given level.
func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			slog.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
