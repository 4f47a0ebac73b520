package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/gridbill/gridbill/internal/extract"
	"github.com/gridbill/gridbill/internal/model"
	"github.com/gridbill/gridbill/internal/worker"
)

// Filler resolves leftover fields by asking an LLM provider. It never
// overrides a matcher result: only not_found and ambiguous fields are sent,
// and a returned value is accepted only if it parses under the same rules
// the matchers use.
type Filler struct {
	provider Provider
	limiter  *worker.Limiter
	config   Config

	checkOnce sync.Once
	ok        bool
}

// NewFiller creates a filler from the runtime configuration. An empty
// provider name yields a disabled filler.
func NewFiller(cfg model.LLMConfig) (*Filler, error) {
	config := ConfigFromModel(cfg)
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Filler{
		provider: provider,
		limiter:  worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		config:   config,
	}, nil
}

// IsEnabled reports whether a provider is configured.
func (f *Filler) IsEnabled() bool {
	return f != nil && f.provider != nil
}

// ProviderName returns the active provider name, empty when disabled.
func (f *Filler) ProviderName() string {
	if !f.IsEnabled() {
		return ""
	}
	return f.provider.Name()
}

// Fill returns a copy of results where unresolved fields carry the provider's
// values. Found results pass through untouched, and unparseable answers are
// ignored. The input slice is never modified.
func (f *Filler) Fill(ctx context.Context, doc model.Document, results []model.FieldResult) ([]model.FieldResult, error) {
	if !f.IsEnabled() {
		return results, nil
	}

	fields := unresolvedFields(results)
	if len(fields) == 0 {
		return results, nil
	}

	if !f.available(ctx) {
		return nil, fmt.Errorf("%s provider is not available", f.provider.Name())
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := f.provider.Fill(ctx, FillRequest{
		Text:      doc.Text(),
		Fields:    fields,
		Model:     f.config.Model,
		MaxTokens: f.config.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	source := resp.Model
	if source == "" {
		source = f.provider.Name()
	}

	out := make([]model.FieldResult, len(results))
	copy(out, results)
	for i, r := range out {
		if r.Status == model.ResultFound {
			continue
		}
		raw, ok := resp.Values[r.Field]
		if !ok {
			continue
		}
		value, err := extract.ParseValue(r.Field, raw)
		if err != nil {
			continue
		}
		filled := model.Found(r.Field, value, raw)
		filled.Note = fmt.Sprintf("filled by %s", source)
		out[i] = filled
	}
	return out, nil
}

// available memoizes the provider probe so a batch pays for at most one
// availability check.
func (f *Filler) available(ctx context.Context) bool {
	f.checkOnce.Do(func() {
		f.ok = f.provider.IsAvailable(ctx)
	})
	return f.ok
}

// unresolvedFields lists the fields whose matchers came back not_found or
// ambiguous, in result order.
func unresolvedFields(results []model.FieldResult) []model.Field {
	var fields []model.Field
	for _, r := range results {
		if r.Status != model.ResultFound {
			fields = append(fields, r.Field)
		}
	}
	return fields
}
