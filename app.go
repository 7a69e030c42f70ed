package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stefanbuck/random-k8s/config"
	"github.com/stefanbuck/random-k8s/glossary"
	"github.com/stefanbuck/random-k8s/page"
	"github.com/stefanbuck/random-k8s/poster"
	"github.com/stefanbuck/random-k8s/selector"
	"github.com/stefanbuck/random-k8s/sender"
	"github.com/stefanbuck/random-k8s/sitemap"
	"github.com/stefanbuck/random-k8s/storage"
	"github.com/stefanbuck/random-k8s/tweet"
)

const settingLastRun = "last_run"

// App holds all application dependencies.
type App struct {
	cfg      *config.Config
	db       *storage.DB
	loader   *sitemap.Loader
	fetcher  *page.Fetcher
	composer *tweet.Composer
	sender   sender.Sender
	running  sync.Mutex
}

func newApp(cfg *config.Config) (*App, error) {
	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize database %s: %w", cfg.DBPath, err)
	}
	slog.Info("database initialized", "path", cfg.DBPath)

	rules, err := tweet.RulesByName(cfg.Rules)
	if err != nil {
		db.Close()
		return nil, err
	}
	counter := tweet.NewCounter(
		tweet.WithMaxWeightedLength(cfg.MaxWeightedLength),
		tweet.WithURLLength(cfg.URLLength),
	)

	s, err := newSender(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		cfg:    cfg,
		db:     db,
		loader: sitemap.NewLoader(sitemap.WithTimeout(cfg.FetchTimeout())),
		fetcher: page.NewFetcher(
			page.WithTimeout(cfg.FetchTimeout()),
			page.WithTitlePrefix(cfg.TitlePrefix),
			page.WithMaxTitleLength(cfg.MaxTitleLength),
		),
		composer: tweet.NewComposer(counter,
			tweet.WithRules(rules),
			tweet.WithDefaultHashtag(cfg.Hashtag),
		),
		sender: s,
	}, nil
}

func newSender(cfg *config.Config) (sender.Sender, error) {
	if cfg.DryRun {
		return sender.NewStdoutSender(os.Stdout), nil
	}

	opts := []sender.TwitterOption{sender.WithTwitterTimeout(cfg.FetchTimeout())}
	if cfg.Twitter.BaseURL != "" {
		opts = append(opts, sender.WithTwitterHost(cfg.Twitter.BaseURL))
	}
	primary := sender.NewTwitterSender(cfg.Twitter.BearerToken, opts...)

	var mirrors []sender.Sender
	if cfg.Telegram.Token != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return nil, fmt.Errorf("initialize telegram bot: %w", err)
		}
		slog.Info("telegram mirror enabled", "username", bot.Self.UserName, "chat_id", cfg.Telegram.ChatID)
		mirrors = append(mirrors, sender.NewTelegramSender(bot, cfg.Telegram.ChatID))
	}

	return sender.NewMulti(primary, mirrors...), nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.db.Close()
}

func (a *App) candidates(ctx context.Context) ([]selector.Candidate, error) {
	urls, err := a.loader.Load(ctx, a.cfg.Sitemap)
	if err != nil {
		return nil, fmt.Errorf("load sitemap: %w", err)
	}
	tweetable := selector.Select(urls, a.cfg.SelectorRules())
	if len(tweetable) == 0 {
		slog.Warn("no sitemap URL matches the allow rules", "sitemap", len(urls), "allow", a.cfg.Allow)
	}

	var entries []tweet.PageMeta
	if a.cfg.GlossaryPath != "" {
		entries, err = glossary.Load(a.cfg.GlossaryPath)
		if err != nil {
			return nil, err
		}
	}

	slog.Info("candidates loaded", "sitemap", len(urls), "tweetable", len(tweetable), "glossary", len(entries))
	return selector.Merge(tweetable, entries), nil
}

func (a *App) runOnce(ctx context.Context) (*poster.Result, error) {
	candidates, err := a.candidates(ctx)
	if err != nil {
		return nil, err
	}

	runner := poster.NewRunner(
		candidates,
		a.fetcher,
		a.composer,
		&storageAdapter{db: a.db},
		a.sender,
		poster.WithRetryLimit(a.cfg.RetryLimit),
		poster.WithRecencyWindow(a.cfg.RecencyWindow()),
		poster.WithDryRun(a.cfg.DryRun),
	)

	result, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}

	if !a.cfg.DryRun {
		if err := a.db.SetSetting(ctx, settingLastRun, time.Now().UTC().Format(time.RFC3339)); err != nil {
			slog.Warn("failed to record run", "error", err)
		}
	}
	return result, nil
}

func (a *App) scheduledRun(ctx context.Context) {
	if !a.running.TryLock() {
		slog.Warn("previous run still in progress, skipping")
		return
	}
	defer a.running.Unlock()

	if _, err := a.runOnce(ctx); err != nil {
		slog.Error("scheduled run failed", "error", err)
	}
}

// Adapter types to bridge between storage and the poster package interfaces

type storageAdapter struct {
	db *storage.DB
}

func (s *storageAdapter) GetRecentlyPostedURLs(ctx context.Context, within time.Duration) ([]string, error) {
	return s.db.GetRecentlyPostedURLs(ctx, within)
}

func (s *storageAdapter) SavePost(ctx context.Context, post *poster.StoredPost) error {
	return s.db.SavePost(ctx, &storage.Post{
		URL:      post.URL,
		Title:    post.Title,
		Text:     post.Text,
		TweetID:  post.TweetID,
		PostedAt: post.PostedAt,
	})
}
