package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gen2brain/go-fitz"

	"github.com/gridbill/gridbill/internal/cache"
	"github.com/gridbill/gridbill/internal/model"
)

// ErrUnreadableDocument marks a file that could not be opened or parsed as a
// PDF. Batch processing records it as that file's failure and moves on.
var ErrUnreadableDocument = errors.New("unreadable document")

// TextSource produces the raw per-page text of a PDF.
type TextSource interface {
	ExtractText(ctx context.Context, path string) (model.Document, error)
}

// FitzSource extracts page text with MuPDF.
type FitzSource struct{}

// NewFitzSource creates the default PDF text source.
func NewFitzSource() *FitzSource {
	return &FitzSource{}
}

// ExtractText reads the file and pulls the text of every page in order.
func (s *FitzSource) ExtractText(ctx context.Context, path string) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("%w: %s: %v", ErrUnreadableDocument, path, err)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return model.Document{}, fmt.Errorf("%w: %s: %v", ErrUnreadableDocument, path, err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return model.Document{}, fmt.Errorf("%w: %s: page %d: %v", ErrUnreadableDocument, path, i+1, err)
		}
		pages = append(pages, text)
	}

	return model.NewDocument(pages...), nil
}

// CachedSource wraps a TextSource with a content-addressed cache, so a PDF is
// parsed once no matter how many runs touch it.
type CachedSource struct {
	source TextSource
	cache  cache.Cache
}

// NewCachedSource wraps source with the given cache.
func NewCachedSource(source TextSource, c cache.Cache) *CachedSource {
	return &CachedSource{source: source, cache: c}
}

// ExtractText serves the document from cache when the file's content hash
// hits, extracting and storing it otherwise. The key covers the file bytes,
// not the path, so moved or renamed files still hit.
func (s *CachedSource) ExtractText(ctx context.Context, path string) (model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("%w: %s: %v", ErrUnreadableDocument, path, err)
	}

	key := cache.Key(data)
	if raw, found := s.cache.Get(key); found {
		var doc model.Document
		if err := json.Unmarshal(raw, &doc); err == nil {
			return doc, nil
		}
		_ = s.cache.Delete(key)
	}

	doc, err := s.source.ExtractText(ctx, path)
	if err != nil {
		return model.Document{}, err
	}

	if raw, err := json.Marshal(doc); err == nil {
		_ = s.cache.Set(key, raw, 0)
	}
	return doc, nil
}
