package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/filingharvest/internal/profile"
	"github.com/hyperifyio/filingharvest/internal/record"
)

// ErrNoDocument is returned when the input document is empty.
var ErrNoDocument = errors.New("extract: empty document")

// TextFetcher returns the decoded body of a URL, or ok=false when it could
// not be obtained. Implementations log their own failures.
type TextFetcher interface {
	Text(ctx context.Context, rawURL string) (string, bool)
}

// Extractor turns a filing document into an extraction record.
type Extractor struct {
	Fetcher TextFetcher
	Profile profile.Profile
	// BaseURL resolves relative document references and "{base}" in the
	// profile's section table.
	BaseURL string
	// Concurrency bounds parallel subordinate fetches. Values below 1 mean
	// sequential.
	Concurrency int

	headings []Heading
}

// New compiles the profile's heading rules.
func New(f TextFetcher, p profile.Profile, baseURL string) (*Extractor, error) {
	hs := make([]Heading, 0, len(p.Headings))
	for _, h := range p.Headings {
		re, err := h.Regexp()
		if err != nil {
			return nil, fmt.Errorf("heading %q: %w", h.Label, err)
		}
		hs = append(hs, Heading{Label: h.Label, Pattern: re})
	}
	return &Extractor{Fetcher: f, Profile: p, BaseURL: baseURL, headings: hs}, nil
}

// ExtractFile reads a previously fetched document from path and extracts it.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*record.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return e.Extract(ctx, b)
}

// Extract builds the record in this order, later writes replacing earlier
// ones with the same key: tagged facts, hyperlinks, heading sections. Values
// naming a relative .htm document are then replaced by that document's text
// and "#i" anchors are made absolute. Finally each entry of the profile's
// section table is fetched and written under its name.
//
// Failed subordinate fetches leave the affected value unchanged. Any other
// failure, including cancellation of ctx, returns an error and no record.
func (e *Extractor) Extract(ctx context.Context, doc []byte) (*record.Record, error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil, ErrNoDocument
	}
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(expandSelfClosing(doc)))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	logger := zerolog.Ctx(ctx)

	rec := Facts(d, e.Profile.Markers)
	logger.Debug().Int("count", rec.Len()).Msg("tagged facts")
	links := Links(d)
	logger.Debug().Int("count", links.Len()).Msg("hyperlinks")
	rec.Merge(links)
	sections := Sections(d, e.headings)
	logger.Debug().Int("count", sections.Len()).Msg("heading sections")
	rec.Merge(sections)

	if err := e.resolveReferences(ctx, rec); err != nil {
		return nil, err
	}
	if err := e.mergeSectionTable(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DocumentURL joins a relative reference onto the base URL.
func (e *Extractor) DocumentURL(ref string) string {
	return strings.TrimRight(e.BaseURL, "/") + "/" + ref
}

func (e *Extractor) resolveReferences(ctx context.Context, rec *record.Record) error {
	var keys, urls []string
	rec.Each(func(k string, v any) {
		s, ok := v.(string)
		if !ok {
			return
		}
		switch {
		case strings.HasSuffix(s, ".htm"):
			keys = append(keys, k)
			urls = append(urls, e.DocumentURL(s))
		case strings.HasPrefix(s, "#i"):
			rec.Set(k, e.DocumentURL(s))
		}
	})
	if len(urls) == 0 {
		return nil
	}
	zerolog.Ctx(ctx).Info().Int("count", len(urls)).Msg("fetching referenced documents")
	texts, err := e.fetchAll(ctx, urls)
	if err != nil {
		return err
	}
	for i, t := range texts {
		if t.ok {
			rec.Set(keys[i], Flatten([]byte(t.text)))
		}
	}
	return nil
}

func (e *Extractor) mergeSectionTable(ctx context.Context, rec *record.Record) error {
	table := e.Profile.Sections
	if len(table) == 0 {
		return nil
	}
	urls := make([]string, len(table))
	for i, s := range table {
		urls[i] = s.ResolveURL(e.BaseURL)
	}
	zerolog.Ctx(ctx).Info().Int("count", len(urls)).Msg("fetching section table")
	texts, err := e.fetchAll(ctx, urls)
	if err != nil {
		return err
	}
	for i, t := range texts {
		if t.ok {
			rec.Set(table[i].Name, Flatten([]byte(t.text)))
		}
	}
	return nil
}

type fetched struct {
	text string
	ok   bool
}

// fetchAll fetches urls with bounded parallelism. Results are positional so
// callers merge them in a fixed order regardless of completion order.
func (e *Extractor) fetchAll(ctx context.Context, urls []string) ([]fetched, error) {
	out := make([]fetched, len(urls))
	if e.Fetcher == nil {
		return out, nil
	}
	limit := e.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, ok := e.Fetcher.Text(gctx, u)
			out[i] = fetched{text: text, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
