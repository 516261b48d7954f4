package cleaner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/purgedom/cleaner/dom"
	"github.com/hazyhaar/purgedom/cleaner/htmldom"
	"github.com/hazyhaar/purgedom/cleaner/internal/fetcher"
	"github.com/hazyhaar/purgedom/cleaner/reconcile"
	"github.com/hazyhaar/purgedom/cleaner/store"
)

// Render output formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// RenderOptions configures Render.
type RenderOptions struct {
	URL        string
	Format     string // FormatHTML (default) or FormatMarkdown
	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
}

// RenderResult summarises a render.
type RenderResult struct {
	URL       string // after redirects
	PageKey   string
	Selectors int
	Removed   int
}

// Render fetches a page, hides what the user removed from it in the
// browser and writes the rest to w as sanitized HTML or Markdown. It reads
// the backend and never writes to it. Script-rendered content is not seen.
func Render(ctx context.Context, backend store.Backend, opts RenderOptions, w io.Writer) (*RenderResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	format := opts.Format
	if format == "" {
		format = FormatHTML
	}
	if format != FormatHTML && format != FormatMarkdown {
		return nil, fmt.Errorf("cleaner: render: unknown format %q", format)
	}

	fopts := []fetcher.Option{fetcher.WithLogger(logger)}
	if opts.HTTPClient != nil {
		fopts = append(fopts, fetcher.WithClient(opts.HTTPClient))
	}
	if opts.UserAgent != "" {
		fopts = append(fopts, fetcher.WithUserAgent(opts.UserAgent))
	}
	page, err := fetcher.New(fopts...).Fetch(ctx, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("cleaner: render: %w", err)
	}
	if !page.Sufficient {
		logger.Warn("cleaner: page looks script-rendered, output may be incomplete", "url", page.URL)
	}

	key, err := store.PageKey(page.URL)
	if err != nil {
		return nil, fmt.Errorf("cleaner: render: %w", err)
	}
	selectors, err := backend.Get(ctx, key)
	if err != nil {
		logger.Warn("cleaner: render without removals", "page", key, "error", err)
		selectors = nil
	}

	doc, err := htmldom.Parse(bytes.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("cleaner: render: %w", err)
	}
	removed := dropRemoved(doc, selectors, logger)

	out, err := doc.HTML()
	if err != nil {
		return nil, fmt.Errorf("cleaner: render: %w", err)
	}
	switch format {
	case FormatMarkdown:
		conv := converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
		out, err = conv.ConvertString(out, converter.WithDomain(page.URL))
		if err != nil {
			return nil, fmt.Errorf("cleaner: render: markdown: %w", err)
		}
	default:
		out = bluemonday.UGCPolicy().Sanitize(out)
	}
	if _, err := io.WriteString(w, out); err != nil {
		return nil, fmt.Errorf("cleaner: render: write: %w", err)
	}

	logger.Debug("cleaner: rendered", "url", page.URL, "selectors", len(selectors), "removed", removed)
	return &RenderResult{URL: page.URL, PageKey: key, Selectors: len(selectors), Removed: removed}, nil
}

// dropRemoved runs one reconcile pass for selectors, then detaches every
// marked element. It returns how many were detached.
func dropRemoved(doc *htmldom.Document, selectors []string, logger *slog.Logger) int {
	rec := reconcile.New(reconcile.Config{
		Doc:       doc,
		Scheduler: &reconcile.FrameQueue{},
		Selectors: func() []string { return selectors },
		Mark: func(el dom.Element, sel string) {
			if dom.Removable(doc, el) {
				dom.Mark(el, sel)
			}
		},
		Logger: logger,
	})
	rec.Pass()

	marked, err := doc.QueryAll(dom.RemovedSelector)
	if err != nil {
		logger.Warn("cleaner: render: marker query", "error", err)
		return 0
	}
	for _, el := range marked {
		doc.Remove(el)
	}
	return len(marked)
}
