package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"statusgen/internal/cache"
	"statusgen/internal/config"
	"statusgen/internal/connector/bugzilla"
	"statusgen/internal/connector/github"
	"statusgen/internal/logging"
	"statusgen/internal/paging"
	"statusgen/internal/pipeline"
	"statusgen/internal/summarize"
	"statusgen/internal/tracker"
)

// app holds everything a command needs, assembled once from config, the
// optional rules/sources/presets files, and environment credentials.
type app struct {
	cfg     *config.Config
	creds   config.Credentials
	rules   config.Rules
	sources config.SourceList
	logger  *logging.Logger

	cache      cache.ResponseCache
	primary    *bugzilla.Bugzilla
	secondary  *github.GitHub // nil without a token or a github declaration
	summarizer summarize.Summarizer
}

func configDir() string {
	if configDirFlag != "" {
		return configDirFlag
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

func newApp() (*app, error) {
	dir := configDir()

	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if debugFlag {
		level = logging.DebugLevel
	}
	logger := logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  level,
	})

	rules, err := config.LoadRules(filepath.Join(dir, ".statusgen", cfg.RulesPath))
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	sources, err := config.LoadSources(filepath.Join(dir, ".statusgen", cfg.SourcesPath))
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	creds := config.LoadCredentials()

	rc, err := openCache(dir, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	a := &app{
		cfg:     cfg,
		creds:   creds,
		rules:   rules,
		sources: sources,
		logger:  logger,
		cache:   rc,
	}

	timeout := time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second

	bzDecl, ok := sources.ByKind("bugzilla")
	if !ok {
		return nil, fmt.Errorf("no bugzilla source declared")
	}
	a.primary = bugzilla.New(bugzilla.Options{
		BaseURL:   bzDecl.BaseURL,
		SearchURL: bzDecl.SearchURL,
		APIKey:    creds.BugzillaKey,
		ChunkSize: cfg.Fetch.ChunkSize,
		Timeout:   timeout,
	}, rc, logger)

	if ghDecl, ok := sources.ByKind("github"); ok && creds.HasGitHub() {
		a.secondary = github.New(github.Options{
			BaseURL: ghDecl.BaseURL,
			Repos:   ghDecl.Repos,
			Token:   creds.GitHubToken,
			Timeout: timeout,
		}, rc, logger)
	}

	presets, err := summarize.LoadPresets(filepath.Join(dir, ".statusgen", "presets.toml"))
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	a.summarizer = summarize.NewOpenAIClient(creds.OpenAIKey, "", presets)

	return a, nil
}

func openCache(dir string, cfg *config.Config, logger *logging.Logger) (cache.ResponseCache, error) {
	if noCacheFlag {
		return cache.NewBypass(), nil
	}

	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	if cfg.Cache.Backend == "sqlite" {
		path := cfg.Cache.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		return cache.OpenSQLite(cache.SQLiteOptions{Path: path, TTL: ttl}, logger)
	}

	return cache.NewMemory(cache.MemoryOptions{
		TTL:           ttl,
		SweepInterval: time.Duration(cfg.Cache.SweepIntervalSeconds) * time.Second,
	}), nil
}

func (a *app) close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("Cache close failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// itemURL builds the per-item deep link for the rendered id list.
func (a *app) itemURL() func(int) string {
	decl, ok := a.sources.ByKind("bugzilla")
	if !ok || decl.BaseURL == "" {
		return nil
	}
	base := decl.BaseURL
	return func(id int) string {
		return fmt.Sprintf("%s/show_bug.cgi?id=%d", base, id)
	}
}

// pipelineDeps assembles the dependency set for a pipeline run.
func (a *app) pipelineDeps() pipeline.Deps {
	deps := pipeline.Deps{
		Primary:       a.primary,
		Summarizer:    a.summarizer,
		Rules:         a.rules,
		Logger:        a.logger,
		Workers:       a.cfg.Fetch.HistoryWorkers,
		MaxSummarized: a.cfg.Report.MaxSummarized,
		SearchURL:     a.primary.SearchUIURL,
		ItemURL:       a.itemURL(),
	}
	if a.secondary != nil {
		deps.Secondary = a.secondary
		deps.Enricher = a.secondary
	}
	return deps
}

// protocol assembles the pagination protocol over the same collaborators.
func (a *app) protocol() *paging.Protocol {
	srcs := []tracker.Source{a.primary}
	p := &paging.Protocol{
		Sources:       srcs,
		Rules:         a.rules,
		Logger:        a.logger,
		Summarizer:    a.summarizer,
		Workers:       a.cfg.Fetch.HistoryWorkers,
		MaxSummarized: a.cfg.Report.MaxSummarized,
		SearchURL:     a.primary.SearchUIURL,
		ItemURL:       a.itemURL(),
	}
	if a.secondary != nil {
		p.Sources = append(p.Sources, a.secondary)
		p.Enricher = a.secondary
	}
	return p
}
