package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/filingharvest/internal/app"
)

// rootOptions holds flag values. A flag only overrides the config file and
// environment when it was set on the command line.
type rootOptions struct {
	configPath string
	envFiles   []string

	filingURL   string
	baseURL     string
	outputDir   string
	document    string
	rawJSON     string
	cleanedJSON string
	userAgent   string
	timeout     time.Duration
	rate        float64
	concurrency int
	profilePath string

	cache            bool
	cacheDir         string
	cacheClear       bool
	cacheMaxAge      time.Duration
	cacheStrictPerms bool

	verbose bool
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	def := app.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "filingharvest",
		Short: "Harvest tagged facts and sections from an SEC inline XBRL filing",
		Long: `filingharvest downloads one filing document, extracts the text of every
element tagged with a known taxonomy prefix, every hyperlink, and a set of
well-known sections, then writes the result as raw and key-normalized JSON.

Settings are read from built-in defaults, then --config, then FILINGHARVEST_*
environment variables (dotenv files included), then flags.`,
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "Config file (YAML, JSON or TOML)")
	pf.StringSliceVar(&o.envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading the environment")
	pf.StringVar(&o.filingURL, "filing-url", def.FilingURL, "URL of the filing document")
	pf.StringVar(&o.baseURL, "base-url", def.BaseURL, "Base URL for relative document references")
	pf.StringVar(&o.outputDir, "output-dir", def.OutputDir, "Directory for relative artifact paths")
	pf.StringVar(&o.document, "document", def.DocumentPath, "Path of the saved filing document")
	pf.StringVar(&o.rawJSON, "raw-json", def.RawJSONPath, "Path of the raw extraction JSON")
	pf.StringVar(&o.cleanedJSON, "cleaned-json", def.CleanedJSONPath, "Path of the cleaned JSON")
	pf.StringVar(&o.userAgent, "user-agent", def.UserAgent, "User-Agent sent with every request")
	pf.DurationVar(&o.timeout, "timeout", def.Timeout, "Per-request timeout")
	pf.Float64Var(&o.rate, "rate", def.RatePerSecond, "Maximum requests per second (0 disables pacing)")
	pf.IntVar(&o.concurrency, "concurrency", def.Concurrency, "Parallel subordinate fetches")
	pf.StringVar(&o.profilePath, "profile", "", "Scraping profile file (YAML, JSON or TOML); empty uses the built-in one")
	pf.BoolVar(&o.cache, "cache", false, "Enable the conditional-GET disk cache")
	pf.StringVar(&o.cacheDir, "cache-dir", "", "Cache directory (default $XDG_CACHE_HOME/filingharvest)")
	pf.BoolVar(&o.cacheClear, "cache-clear", false, "Clear the cache directory before running")
	pf.DurationVar(&o.cacheMaxAge, "cache-max-age", 0, "Purge cache entries older than this (0 disables)")
	pf.BoolVar(&o.cacheStrictPerms, "cache-strict-perms", false, "Create cache files 0600 and directories 0700")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(
		newRunCmd(o),
		newStageCmd(o, "fetch", "Download the filing document", func(ctx context.Context, a *app.App) error {
			return a.FetchDocument(ctx)
		}),
		newStageCmd(o, "extract", "Extract the saved document into the raw JSON", func(ctx context.Context, a *app.App) error {
			_, err := a.Extract(ctx)
			return err
		}),
		newStageCmd(o, "clean", "Normalize the raw JSON into the cleaned JSON", func(ctx context.Context, a *app.App) error {
			_, err := a.Clean(ctx)
			return err
		}),
		newProfileCmd(o),
		newVersionCmd(),
	)
	return cmd
}

// resolveConfig layers defaults, config file, environment and changed flags.
func resolveConfig(cmd *cobra.Command, o *rootOptions) (app.Config, error) {
	if err := app.LoadEnvFiles(o.envFiles...); err != nil {
		return app.Config{}, fmt.Errorf("load env files: %w", err)
	}
	cfg := app.DefaultConfig()
	if strings.TrimSpace(o.configPath) != "" {
		fc, err := app.LoadConfigFile(o.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return cfg, err
		}
	}
	if err := app.ApplyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("filing-url", func() { cfg.FilingURL = o.filingURL })
	set("base-url", func() { cfg.BaseURL = o.baseURL })
	set("output-dir", func() { cfg.OutputDir = o.outputDir })
	set("document", func() { cfg.DocumentPath = o.document })
	set("raw-json", func() { cfg.RawJSONPath = o.rawJSON })
	set("cleaned-json", func() { cfg.CleanedJSONPath = o.cleanedJSON })
	set("user-agent", func() { cfg.UserAgent = o.userAgent })
	set("timeout", func() { cfg.Timeout = o.timeout })
	set("rate", func() { cfg.RatePerSecond = o.rate })
	set("concurrency", func() { cfg.Concurrency = o.concurrency })
	set("profile", func() { cfg.ProfilePath = o.profilePath })
	set("cache", func() { cfg.CacheEnabled = o.cache })
	set("cache-dir", func() { cfg.CacheDir = o.cacheDir })
	set("cache-clear", func() { cfg.CacheClear = o.cacheClear })
	set("cache-max-age", func() { cfg.CacheMaxAge = o.cacheMaxAge })
	set("cache-strict-perms", func() { cfg.CacheStrictPerms = o.cacheStrictPerms })
	set("verbose", func() { cfg.Verbose = o.verbose })

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if err := app.ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command, o *rootOptions) (*app.App, error) {
	cfg, err := resolveConfig(cmd, o)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg)
}

func newRunCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch, extract and clean in one go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer a.Close()
			// Stage failures are already logged and do not fail the process.
			_ = a.Run(cmd.Context())
			return nil
		},
	}
}

func newStageCmd(o *rootOptions, use, short string, stage func(context.Context, *app.App) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := a.Context(cmd.Context())
			if err := stage(ctx, a); err != nil {
				log.Ctx(ctx).Error().Err(err).Str("stage", use).Msg("stage failed")
			}
			return nil
		},
	}
}

func newProfileCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print the effective scraping profile as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, o)
			if err != nil {
				return err
			}
			p, err := app.LoadProfile(cfg)
			if err != nil {
				return err
			}
			b, err := p.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "filingharvest version %s\n", app.BuildVersion)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", app.BuildCommit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", app.BuildDate)
		},
	}
}
