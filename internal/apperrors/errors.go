package apperrors

import (
	"errors"

	"ai-companion-be/pkg/embedding"
	"ai-companion-be/pkg/extract"
	"ai-companion-be/pkg/llm/router"
	"ai-companion-be/pkg/vectorindex"
)

// The service-wide error taxonomy. Most sentinels live next to the package
// that raises them; they are aliased here so handlers and middleware can
// match the whole family from one import.
var (
	ErrUnsupportedFormat    = extract.ErrUnsupportedFormat
	ErrEmbeddingUnavailable = embedding.ErrUnavailable
	ErrNoProviderAvailable  = router.ErrNoProviderAvailable
	ErrStreamInterrupted    = router.ErrStreamInterrupted
	ErrIndexCorruption      = vectorindex.ErrCorrupted

	ErrNotFound = errors.New("resource not found")
)
