package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gridbill/gridbill/internal/assemble"
	"github.com/gridbill/gridbill/internal/cache"
	"github.com/gridbill/gridbill/internal/extract"
	"github.com/gridbill/gridbill/internal/llm"
	"github.com/gridbill/gridbill/internal/model"
)

// Pipeline runs the complete extraction for single files: page text, field
// matching, optional LLM fill, assembly.
type Pipeline struct {
	source    TextSource
	registry  *extract.Registry
	assembler *assemble.Assembler
	filler    *llm.Filler // nil when LLM fill is disabled
	verbose   bool
}

// NewPipeline creates a pipeline from the given configuration.
func NewPipeline(cfg *model.Config) *Pipeline {
	var filler *llm.Filler
	if cfg.LLM.Provider != "" {
		f, err := llm.NewFiller(cfg.LLM)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize LLM provider: %v\n", err)
		} else {
			filler = f
		}
	}

	registry := extract.NewRegistry()
	return &Pipeline{
		source:    newSource(cfg),
		registry:  registry,
		assembler: assemble.New(registry),
		filler:    filler,
		verbose:   cfg.Verbose,
	}
}

// newSource builds the text source, layering the content cache on when
// enabled.
func newSource(cfg *model.Config) TextSource {
	src := NewFitzSource()
	if !cfg.Cache.Enabled {
		return src
	}

	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := cache.DefaultDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache disabled: %v\n", err)
			return src
		}
		dir = d
	}

	layered := cache.NewLayeredCache(
		time.Duration(cfg.Cache.MemoryTTLMinutes)*time.Minute,
		dir,
		time.Duration(cfg.Cache.DiskTTLDays)*24*time.Hour,
	)
	return NewCachedSource(src, layered)
}

// ExtractFile turns one PDF into an invoice record.
func (p *Pipeline) ExtractFile(ctx context.Context, path string) (*model.InvoiceRecord, error) {
	// 1. Extract page text
	doc, err := p.source.ExtractText(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc.Empty() {
		return nil, fmt.Errorf("%s: %w", path, assemble.ErrEmptyDocument)
	}
	p.step("%s: %d pages", path, len(doc.Pages))

	// 2. Run the field matchers
	results := p.registry.Run(doc)

	// 3. LLM fill for unresolved fields, when enabled
	if p.filler != nil {
		filled, err := p.filler.Fill(ctx, doc, results)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: LLM fill failed for %s: %v\n", path, err)
		} else {
			results = filled
		}
	}

	// 4. Assemble and grade the record
	record := p.assembler.AssembleResults(filepath.Base(path), results)
	p.step("%s: %s, %d fields found, %d missing", record.SourceFile, record.Status,
		len(record.Fields), len(record.MissingFields))

	return record, nil
}

func (p *Pipeline) step(format string, args ...interface{}) {
	if p.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
