package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/lvollmer/semkb/core/pipeline"
	"github.com/lvollmer/semkb/model"
	"golang.org/x/sync/semaphore"
)

var (
	sectionPattern = regexp.MustCompile(`^##\s+(.+)$`)
	linkPattern    = regexp.MustCompile(`-\s*\[([^\]]+)\]\(([^)]+)\)(?::\s*(.+))?`)
)

// CrawlResult summarizes a completed crawl.
type CrawlResult struct {
	DocumentsProcessed int
	SectionsFound      []string
}

// Scraper crawls manifest-listed documents into a collection. A manifest is a
// markdown document whose `## ` headers name sections and whose list items
// link to content pages.
type Scraper struct {
	client    *http.Client
	processor *pipeline.Processor
	sink      pipeline.ChunkSink
	limiter   *semaphore.Weighted
	cfg       model.CrawlConfiguration
	logger    *slog.Logger
}

// NewScraper creates a new manifest scraper.
func NewScraper(processor *pipeline.Processor, sink pipeline.ChunkSink, cfg model.CrawlConfiguration, logger *slog.Logger) (*Scraper, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor must not be nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("chunk sink must not be nil")
	}
	if cfg.MaxConcurrent <= 0 {
		return nil, fmt.Errorf("max concurrent fetches must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := &http.Client{
		Timeout: cfg.Timeout(),
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: cfg.ConnectTimeout(),
			}).DialContext,
		},
	}

	return &Scraper{
		client:    client,
		processor: processor,
		sink:      sink,
		limiter:   semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// FetchManifest downloads the manifest document. Any transport or status
// failure is fatal for the crawl.
func (s *Scraper) FetchManifest(ctx context.Context, manifestURL string) (string, error) {
	content, err := s.fetch(ctx, manifestURL)
	if err != nil {
		return "", err
	}
	return content, nil
}

// ParseManifest parses a manifest document into sections of links. Links
// before the first section header land in the default section. Relative URLs
// are resolved against the manifest's host, fragments are stripped, and only
// URLs carrying the configured content extension are kept. A manifest with no
// usable links is a parse failure.
func (s *Scraper) ParseManifest(content string, baseURL string) (*model.Manifest, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, model.NewParseFailure(baseURL, "manifest URL is not absolute")
	}

	manifest := model.NewManifest()
	currentSection := model.DefaultSection

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if match := sectionPattern.FindStringSubmatch(line); match != nil {
			currentSection = strings.TrimSpace(match[1])
			continue
		}

		match := linkPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		linkURL, ok := s.resolveContentURL(base, strings.TrimSpace(match[2]))
		if !ok {
			continue
		}

		manifest.AddLink(currentSection, model.ManifestLink{
			Title:       strings.TrimSpace(match[1]),
			URL:         linkURL,
			Description: strings.TrimSpace(match[3]),
		})
	}

	if manifest.TotalLinks() == 0 {
		return nil, model.NewParseFailure(baseURL, "no content links found in manifest")
	}

	return manifest, nil
}

// resolveContentURL resolves a manifest link against the manifest host and
// reports whether it points at a content page. Relative links resolve from
// the host root, not the manifest path. URLs carrying a query string are not
// content pages.
func (s *Scraper) resolveContentURL(base *url.URL, raw string) (string, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	root := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	resolved := root.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.RawQuery != "" {
		return "", false
	}
	if !strings.HasSuffix(resolved.Path, s.cfg.ContentExtension) {
		return "", false
	}

	resolved.Fragment = ""
	return resolved.String(), true
}

// FilterSections restricts a manifest to the wanted sections. A nil or empty
// filter keeps everything.
func (s *Scraper) FilterSections(manifest *model.Manifest, wanted []string) *model.Manifest {
	return manifest.Filter(wanted)
}

// FetchAll downloads the given URLs with bounded concurrency. Failed URLs are
// logged and omitted from the result, they never abort the crawl.
func (s *Scraper) FetchAll(ctx context.Context, urls []string) map[string]string {
	var mu sync.Mutex
	var wg sync.WaitGroup
	fetched := map[string]string{}

	for _, pageURL := range urls {
		if err := s.limiter.Acquire(ctx, 1); err != nil {
			s.logger.Warn("Fetch cancelled", slog.Any("error", err))
			break
		}

		wg.Add(1)
		go func(pageURL string) {
			defer wg.Done()
			defer s.limiter.Release(1)

			content, err := s.fetch(ctx, pageURL)
			if err != nil {
				s.logger.Warn("Failed to fetch page",
					slog.String("url", pageURL),
					slog.Any("error", err),
				)
				return
			}

			mu.Lock()
			fetched[pageURL] = content
			mu.Unlock()
		}(pageURL)
	}

	wg.Wait()
	return fetched
}

// IngestAll processes fetched pages into the collection, using each page URL
// as its source document. Per-page failures are logged and skipped; pages
// already ingested stay ingested. Pages that yield no chunks are skipped
// without counting as ingested or failed. Returns the number of ingested
// pages.
func (s *Scraper) IngestAll(ctx context.Context, indexName string, fetched map[string]string) int {
	ingested := 0

	for _, pageURL := range sortedKeys(fetched) {
		if ctx.Err() != nil {
			s.logger.Info("Ingestion cancelled", slog.Int("ingested", ingested))
			break
		}

		result, err := s.processor.ProcessContent(fetched[pageURL])
		if err != nil {
			s.logger.Warn("Failed to process page",
				slog.String("url", pageURL),
				slog.Any("error", err),
			)
			continue
		}
		if result.Empty() {
			continue
		}

		_, err = s.sink.AddChunks(indexName, result.Chunks, result.Embeddings, pageURL, result.Offsets, result.TokenCounts)
		if err != nil {
			s.logger.Warn("Failed to store page chunks",
				slog.String("url", pageURL),
				slog.Any("error", err),
			)
			continue
		}

		ingested++
	}

	return ingested
}

// Run executes a full crawl: fetch the manifest, parse it, filter sections,
// fetch all linked pages and ingest them into the collection.
func (s *Scraper) Run(ctx context.Context, indexName string, manifestURL string, sections []string) (*CrawlResult, error) {
	content, err := s.FetchManifest(ctx, manifestURL)
	if err != nil {
		return nil, err
	}

	manifest, err := s.ParseManifest(content, manifestURL)
	if err != nil {
		return nil, err
	}

	filtered := s.FilterSections(manifest, sections)

	urls := filtered.UniqueURLs()
	s.logger.Info("Starting crawl",
		slog.String("index", indexName),
		slog.Int("sections", len(filtered.SectionNames())),
		slog.Int("pages", len(urls)),
	)

	fetched := s.FetchAll(ctx, urls)
	processed := s.IngestAll(ctx, indexName, fetched)

	return &CrawlResult{
		DocumentsProcessed: processed,
		SectionsFound:      manifest.SectionNames(),
	}, nil
}

// fetch downloads one URL as text.
func (s *Scraper) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", model.NewFetchFailure(pageURL, err.Error())
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/markdown, text/plain, text/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", model.NewFetchFailure(pageURL, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", model.NewFetchFailure(pageURL, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model.NewFetchFailure(pageURL, err.Error())
	}

	return string(body), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
