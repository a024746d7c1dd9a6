package apperr

import "errors"

// Sentinel errors for the codeframe pipeline. Services return these (wrapped
// with %w where extra context helps) and the HTTP error middleware maps them
// to response statuses with errors.Is.
var (
	// ErrEmbeddingUnavailable aborts the whole run: clustering quality
	// depends on vector consistency, so there is no approximate fallback.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrGenerationParse marks a cluster whose LLM response stayed
	// unparseable after the stricter re-ask. The run continues.
	ErrGenerationParse = errors.New("generation response unparseable")

	ErrDuplicateSiblingName = errors.New("duplicate sibling name")
	ErrInvalidConfig        = errors.New("invalid generation config")
	ErrRunCancelled         = errors.New("generation run cancelled")
	ErrRunFinished          = errors.New("generation run already finished")
	ErrRunNotFound          = errors.New("generation run not found")
	ErrRunNotCompleted      = errors.New("generation run not completed")
	ErrNodeNotFound         = errors.New("hierarchy node not found")
	ErrInvalidMerge         = errors.New("nodes cannot be merged")
	ErrCategoryNotFound     = errors.New("category not found")
)
