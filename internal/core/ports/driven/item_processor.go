package driven

import "github.com/custodia-labs/integra/internal/core/domain"

// ItemProcessor applies a shaping step to a list of integration items.
// Processors form a pipeline: Sanitizer -> Deduplicator -> Sorter.
type ItemProcessor interface {
	// Process applies the step to the items from the previous stage.
	Process(items []domain.IntegrationItem) []domain.IntegrationItem

	// Name returns the processor name for logging/debugging.
	Name() string

	// Order returns the processor order in the pipeline (lower = earlier).
	Order() int
}

// ItemPipeline chains multiple item processors in order.
// Provider adapters return items in whatever shape and order the remote
// API hands out, the pipeline makes the list presentable.
type ItemPipeline interface {
	// Process applies all processors in order.
	Process(items []domain.IntegrationItem) []domain.IntegrationItem

	// Add adds a processor to the pipeline.
	// Processors are sorted by Order() before processing.
	Add(processor ItemProcessor)

	// List returns processor names in order.
	List() []string
}
