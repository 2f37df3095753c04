package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/pagopa/cdcview/artifactstore"
	"github.com/pagopa/cdcview/internal/logger"
	"github.com/pagopa/cdcview/viewgen"
)

// Cache stores generated fragments between requests. *artifactstore.Store
// implements it.
type Cache interface {
	Get(ctx context.Context, key string) (*artifactstore.Record, error)
	Put(ctx context.Context, rec *artifactstore.Record) error
}

// Handler answers macro events.
type Handler struct {
	logger *slog.Logger
	cache  Cache
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger. The global logger is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithCache makes the handler reuse fragments generated for identical
// parameters.
func WithCache(c Cache) Option {
	return func(h *Handler) { h.cache = c }
}

// NewHandler returns a handler.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get()
	}
	return h
}

func unsupportedOutputType(t OutputType) error {
	return &viewgen.ConfigurationError{Param: "OutputType", Value: string(t), Reason: "output type not supported"}
}

// Handle builds the fragment selected by the event's output type. Disabled
// requests get placeholder fragments that never depend on the schema
// parameters.
func (h *Handler) Handle(ctx context.Context, ev Event) (Response, error) {
	p := ev.Params
	if !slices.Contains(OutputTypes, p.OutputType) {
		return Response{}, unsupportedOutputType(p.OutputType)
	}

	var (
		frag Fragment
		err  error
	)
	if p.IsEnabled() {
		frag, err = h.generate(ctx, p)
	} else {
		frag, err = placeholder(p)
	}
	if err != nil {
		return Response{}, err
	}

	return Response{
		RequestID: ev.RequestID,
		Fragment:  frag,
		Status:    StatusSuccess,
	}, nil
}

func placeholder(p Params) (Fragment, error) {
	switch p.OutputType {
	case OutputStorageColumns, OutputStorageColumnsNoParsedPartition:
		return Fragment{Columns: viewgen.PlaceholderStorageColumns()}, nil
	case OutputViewText, OutputViewTextUnionAll:
		text, err := viewgen.PlaceholderViewText(p.CatalogName, p.DatabaseName)
		if err != nil {
			return Fragment{}, err
		}
		return Fragment{Text: text}, nil
	default:
		return Fragment{}, unsupportedOutputType(p.OutputType)
	}
}

// CacheKey identifies the fragment generated for cfg and output.
func CacheKey(cfg viewgen.Config, output OutputType) string {
	cfg = cfg.Normalize()
	return artifactstore.Fingerprint(
		string(output),
		cfg.CatalogName,
		cfg.DatabaseName,
		cfg.CdcTableName,
		cfg.CdcParsedTableName,
		cfg.CdcViewName,
		cfg.CdcKeysType,
		cfg.CdcNewImageType,
		cfg.CdcRecordFilter,
	)
}

func (h *Handler) generate(ctx context.Context, p Params) (Fragment, error) {
	key := CacheKey(p.Config, p.OutputType)
	if h.cache != nil {
		frag, ok := h.cached(ctx, key)
		if ok {
			h.logger.Debug("Using cached fragment", "view", p.CdcViewName, "output", p.OutputType, "key", key)
			return frag, nil
		}
	}

	gen, err := viewgen.New(p.Config)
	if err != nil {
		return Fragment{}, err
	}

	var frag Fragment
	switch p.OutputType {
	case OutputStorageColumns:
		frag.Columns, err = gen.StorageDescriptorColumns()
	case OutputStorageColumnsNoParsedPartition:
		frag.Columns, err = gen.StorageDescriptorColumnsNoParsedPartition()
	case OutputViewText:
		frag.Text, err = h.viewText(ctx, gen)
	case OutputViewTextUnionAll:
		frag.Text, err = gen.UnionAllViewString()
	default:
		err = unsupportedOutputType(p.OutputType)
	}
	if err != nil {
		return Fragment{}, err
	}

	if h.cache != nil {
		h.store(ctx, key, p, frag)
	}
	return frag, nil
}

func (h *Handler) viewText(ctx context.Context, gen *viewgen.Generator) (string, error) {
	view, err := gen.ViewData()
	if err != nil {
		return "", err
	}
	if h.logger.Enabled(ctx, slog.LevelDebug) {
		payload, _ := json.MarshalIndent(view, "", "  ")
		h.logger.Debug("Generated view", "view", gen.Config().CdcViewName, "query", view.OriginalSQL, "payload", string(payload))
	}
	return viewgen.EncodePrestoView(view)
}

func (h *Handler) cached(ctx context.Context, key string) (Fragment, bool) {
	rec, err := h.cache.Get(ctx, key)
	if errors.Is(err, artifactstore.ErrNotFound) {
		return Fragment{}, false
	}
	if err != nil {
		h.logger.Warn("Artifact cache lookup failed", "key", key, "error", err)
		return Fragment{}, false
	}
	var frag Fragment
	if err := json.Unmarshal(rec.Fragment, &frag); err != nil {
		h.logger.Warn("Discarding unreadable cached fragment", "key", key, "error", err)
		return Fragment{}, false
	}
	return frag, true
}

func (h *Handler) store(ctx context.Context, key string, p Params, frag Fragment) {
	data, err := json.Marshal(frag)
	if err != nil {
		h.logger.Warn("Encoding fragment for cache failed", "key", key, "error", err)
		return
	}
	rec := &artifactstore.Record{
		Key:        key,
		ViewName:   p.CdcViewName,
		OutputType: string(p.OutputType),
		Fragment:   data,
	}
	if err := h.cache.Put(ctx, rec); err != nil {
		h.logger.Warn("Artifact cache write failed", "key", key, "error", fmt.Errorf("put: %w", err))
	}
}

// Fragments maps every output type to its fragment in a.
func Fragments(a *viewgen.Artifacts) map[OutputType]Fragment {
	return map[OutputType]Fragment{
		OutputStorageColumns:                  {Columns: a.StorageColumns},
		OutputStorageColumnsNoParsedPartition: {Columns: a.StorageColumnsNoParsedPartition},
		OutputViewText:                        {Text: a.ViewText},
		OutputViewTextUnionAll:                {Text: a.UnionAllViewText},
	}
}

// Prime stores every fragment of a so that later events for cfg are served
// from the cache. It does nothing without a cache.
func (h *Handler) Prime(ctx context.Context, cfg viewgen.Config, a *viewgen.Artifacts) {
	if h.cache == nil {
		return
	}
	for output, frag := range Fragments(a) {
		h.store(ctx, CacheKey(cfg, output), Params{Config: cfg.Normalize(), OutputType: output}, frag)
	}
}
