package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/filingharvest/internal/cache"
	"github.com/hyperifyio/filingharvest/internal/extract"
	"github.com/hyperifyio/filingharvest/internal/fetch"
	"github.com/hyperifyio/filingharvest/internal/normalize"
	"github.com/hyperifyio/filingharvest/internal/profile"
	"github.com/hyperifyio/filingharvest/internal/record"
)

// ErrPrimaryFetch is returned when the filing document itself could not be
// downloaded. Nothing downstream runs in that case.
var ErrPrimaryFetch = errors.New("primary document fetch failed")

// ErrEmptyExtraction is returned by Run when extraction produced no entries
// and cleaning was skipped.
var ErrEmptyExtraction = errors.New("extraction produced no entries")

// App wires the fetch, extract and clean stages for one configuration.
type App struct {
	cfg       Config
	profile   profile.Profile
	fetcher   *fetch.Client
	extractor *extract.Extractor
	httpCache *cache.HTTPCache
	logger    zerolog.Logger
}

// New prepares the stages. It loads the profile, applies cache invalidation
// and builds one fetch client shared by every stage so the in-run memo and
// rate limit cover all requests.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{
		cfg:    cfg,
		logger: log.Logger.With().Str("run", uuid.NewString()).Logger(),
	}

	p, err := LoadProfile(cfg)
	if err != nil {
		return nil, err
	}
	a.profile = p

	if cfg.CacheEnabled || cfg.CacheClear {
		dir := cacheDir(cfg)
		if cfg.CacheClear {
			if err := cache.ClearDir(dir); err != nil {
				a.logger.Warn().Err(err).Str("dir", dir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := cache.PurgeByAge(dir, cfg.CacheMaxAge)
			if err != nil {
				a.logger.Warn().Err(err).Str("dir", dir).Msg("cache purge failed")
			} else if n > 0 {
				a.logger.Debug().Int("removed", n).Str("dir", dir).Msg("cache purged")
			}
		}
		if cfg.CacheEnabled {
			a.httpCache = &cache.HTTPCache{Dir: dir, StrictPerms: cfg.CacheStrictPerms}
		}
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	a.fetcher = &fetch.Client{
		HTTPClient:        newHTTPClient(cfg.Timeout),
		UserAgent:         cfg.UserAgent,
		PerRequestTimeout: cfg.Timeout,
		Cache:             a.httpCache,
		BypassCache:       cfg.CacheClear,
		MaxConcurrent:     cfg.Concurrency,
		Limiter:           limiter,
	}

	ex, err := extract.New(a.fetcher, a.profile, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("compile profile: %w", err)
	}
	ex.Concurrency = cfg.Concurrency
	a.extractor = ex

	a.logger.Debug().
		Str("filing", cfg.FilingURL).
		Str("base", cfg.BaseURL).
		Bool("cache", a.httpCache != nil).
		Int("sections", len(a.profile.Sections)).
		Msg("app ready")
	return a, nil
}

// LoadProfile returns the profile named by cfg.ProfilePath, or the built-in
// one when no path is set. It has no other side effects.
func LoadProfile(cfg Config) (profile.Profile, error) {
	if strings.TrimSpace(cfg.ProfilePath) == "" {
		return profile.Default(), nil
	}
	p, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		return p, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func cacheDir(cfg Config) string {
	if strings.TrimSpace(cfg.CacheDir) != "" {
		return cfg.CacheDir
	}
	return filepath.Join(xdg.CacheHome, "filingharvest")
}

// Close releases idle connections.
func (a *App) Close() {
	if a.fetcher != nil && a.fetcher.HTTPClient != nil {
		a.fetcher.HTTPClient.CloseIdleConnections()
	}
}

// Config returns the configuration the app was built with.
func (a *App) Config() Config { return a.cfg }

// Profile returns the effective scraping profile.
func (a *App) Profile() profile.Profile { return a.profile }

// Context attaches the run logger to ctx.
func (a *App) Context(ctx context.Context) context.Context {
	return a.logger.WithContext(ctx)
}

// Run executes fetch, extract and clean in order. A failed stage stops the
// pipeline and leaves later artifacts untouched.
func (a *App) Run(ctx context.Context) error {
	ctx = a.Context(ctx)
	logger := zerolog.Ctx(ctx)

	if err := a.FetchDocument(ctx); err != nil {
		logger.Error().Err(err).Msg("fetch stage failed")
		return err
	}
	rec, err := a.Extract(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("extract stage failed")
		return err
	}
	if rec.Len() == 0 {
		logger.Warn().Msg("no entries extracted; skipping clean")
		return ErrEmptyExtraction
	}
	if _, err := a.Clean(ctx); err != nil {
		logger.Error().Err(err).Msg("clean stage failed")
		return err
	}
	logger.Info().Msg("done")
	return nil
}

// FetchDocument downloads the filing and stores its raw bytes.
func (a *App) FetchDocument(ctx context.Context) error {
	ctx = a.Context(ctx)
	body, _, err := a.fetcher.Get(ctx, a.cfg.FilingURL)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("url", a.cfg.FilingURL).Msg("fetch failed")
		return fmt.Errorf("%w: %v", ErrPrimaryFetch, err)
	}
	out := a.cfg.DocumentFile()
	if err := writeFileAtomic(out, body); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("out", out).Int("bytes", len(body)).Msg("document saved")
	return nil
}

// Extract parses the stored document and writes the raw extraction record.
// On error nothing is written.
func (a *App) Extract(ctx context.Context) (*record.Record, error) {
	ctx = a.Context(ctx)
	rec, err := a.extractor.ExtractFile(ctx, a.cfg.DocumentFile())
	if err != nil {
		return nil, err
	}
	out := a.cfg.RawJSONFile()
	if err := writeRecord(out, rec); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("out", out).Int("entries", rec.Len()).Msg("raw record saved")
	return rec, nil
}

// Clean reads the raw record, normalizes it and writes the cleaned record.
// Malformed input writes nothing.
func (a *App) Clean(ctx context.Context) (*record.Record, error) {
	ctx = a.Context(ctx)
	raw, err := readRecord(a.cfg.RawJSONFile())
	if err != nil {
		return nil, err
	}
	cleaned := normalize.Clean(raw)
	out := a.cfg.CleanedJSONFile()
	if err := writeRecord(out, cleaned); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("out", out).Int("entries", cleaned.Len()).Msg("cleaned record saved")
	return cleaned, nil
}
