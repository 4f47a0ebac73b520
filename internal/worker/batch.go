package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gridbill/gridbill/internal/model"
	"github.com/gridbill/gridbill/internal/redact"
)

// Extractor turns one PDF file into an invoice record.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) (*model.InvoiceRecord, error)
}

// fileJob is one indexed extraction task.
type fileJob struct {
	index     int
	path      string
	extractor Extractor
	policy    model.RedactionPolicy
}

// Execute extracts the file and redacts the record. A failure becomes the
// file's result; it never stops the batch.
func (j *fileJob) Execute(ctx context.Context) Result {
	record, err := j.extractor.ExtractFile(ctx, j.path)
	if err != nil {
		return &FileResult{Index: j.index, Path: j.path, Err: err}
	}
	return &FileResult{Index: j.index, Path: j.path, Record: redact.Apply(record, j.policy)}
}

// FileResult is the outcome for one input file.
type FileResult struct {
	Index  int
	Path   string
	Record *model.InvoiceRecord // nil when Err is set
	Err    error
}

// GetError returns the file's extraction error, if any.
func (r *FileResult) GetError() error {
	return r.Err
}

// BatchProcessor extracts many PDFs concurrently. Results always come back
// in input order and already redacted.
type BatchProcessor struct {
	extractor   Extractor
	policy      model.RedactionPolicy
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(extractor Extractor, policy model.RedactionPolicy, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		extractor:   extractor,
		policy:      policy,
		concurrency: concurrency,
	}
}

// ProcessFiles extracts the given files concurrently. The returned slice has
// one entry per input path, in input order, whatever order the workers
// finished in.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*FileResult {
	if len(paths) == 0 {
		return []*FileResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, path := range paths {
		pool.Submit(&fileJob{
			index:     i,
			path:      path,
			extractor: b.extractor,
			policy:    b.policy,
		})
	}

	results := pool.Wait()

	// Place by index so output order equals input order.
	ordered := make([]*FileResult, len(paths))
	for _, result := range results {
		fr := result.(*FileResult)
		ordered[fr.Index] = fr
	}

	// Jobs dropped by cancellation leave holes; record them as such.
	for i, r := range ordered {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			ordered[i] = &FileResult{Index: i, Path: paths[i], Err: err}
		}
	}

	return ordered
}

// ProcessDirectory extracts every PDF directly inside dir.
func (b *BatchProcessor) ProcessDirectory(ctx context.Context, dir string) ([]*FileResult, error) {
	paths, err := ListPDFFiles(dir)
	if err != nil {
		return nil, err
	}
	return b.ProcessFiles(ctx, paths), nil
}

// ListPDFFiles returns the PDF files directly inside dir in lexicographic
// order. Matching is by extension, case-insensitive; subdirectories are not
// descended into.
func ListPDFFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	return paths, nil
}
