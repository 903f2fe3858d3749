package postprocessors

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/integra/internal/core/domain"
	"github.com/custodia-labs/integra/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ItemPipeline = (*Pipeline)(nil)

// Pipeline implements ItemPipeline.
// It chains multiple item processors in order.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.ItemProcessor
	sorted     bool
}

// NewPipeline creates a new item pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.ItemProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor driven.ItemProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order.
func (p *Pipeline) Process(items []domain.IntegrationItem) []domain.IntegrationItem {
	p.mu.Lock()
	if !p.sorted {
		sort.Slice(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	p.mu.Unlock()

	p.mu.RLock()
	processors := make([]driven.ItemProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.RUnlock()

	for _, proc := range processors {
		items = proc.Process(items)
	}

	return items
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates a pipeline with the default processors.
func DefaultPipeline() *Pipeline {
	p := NewPipeline()
	p.Add(NewSanitizer())
	p.Add(NewDeduplicator())
	p.Add(NewSorter())
	return p
}

// Sanitizer trims whitespace out of display fields and backfills a
// placeholder name, so downstream rendering never sees a blank label.
// This is the first processor in the pipeline (Order = 0).
type Sanitizer struct{}

// Verify interface compliance
var _ driven.ItemProcessor = (*Sanitizer)(nil)

// NewSanitizer creates a new sanitizer.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// Process normalises display fields in place.
func (s *Sanitizer) Process(items []domain.IntegrationItem) []domain.IntegrationItem {
	for i := range items {
		items[i].Name = strings.TrimSpace(items[i].Name)
		if items[i].Name == "" {
			items[i].Name = "untitled"
		}
		items[i].Parent = strings.TrimSpace(items[i].Parent)
		items[i].URL = strings.TrimSpace(items[i].URL)
	}
	return items
}

// Name returns the processor name.
func (s *Sanitizer) Name() string {
	return "sanitizer"
}

// Order returns 0, the sanitizer runs first.
func (s *Sanitizer) Order() int {
	return 0
}

// Deduplicator drops items whose ID was already seen, keeping the first
// occurrence. Paginated provider APIs can repeat entries across pages.
type Deduplicator struct{}

// Verify interface compliance
var _ driven.ItemProcessor = (*Deduplicator)(nil)

// NewDeduplicator creates a new deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Process removes duplicate IDs.
func (d *Deduplicator) Process(items []domain.IntegrationItem) []domain.IntegrationItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if item.ID != "" {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
		}
		out = append(out, item)
	}
	return out
}

// Name returns the processor name.
func (d *Deduplicator) Name() string {
	return "deduplicator"
}

// Order returns 1, after sanitization.
func (d *Deduplicator) Order() int {
	return 1
}

// Sorter orders items by type then name, case-insensitively.
// The sort is stable so equal items keep their fetch order.
type Sorter struct{}

// Verify interface compliance
var _ driven.ItemProcessor = (*Sorter)(nil)

// NewSorter creates a new sorter.
func NewSorter() *Sorter {
	return &Sorter{}
}

// Process sorts the items.
func (s *Sorter) Process(items []domain.IntegrationItem) []domain.IntegrationItem {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Type != items[j].Type {
			return items[i].Type < items[j].Type
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items
}

// Name returns the processor name.
func (s *Sorter) Name() string {
	return "sorter"
}

// Order returns 2, the sorter runs last.
func (s *Sorter) Order() int {
	return 2
}
