package store

import (
	domainerrors "github.com/driftbrowser/drift-core/internal/errors"
)

// Sentinel errors. Callers discriminate with errors.Is; a corrupt record is
// reported distinctly from a missing one so the caller can log it, but both
// are treated as "no data".
var (
	ErrWindowNotFound  = domainerrors.NotFound("window snapshot not found")
	ErrSessionNotFound = domainerrors.NotFound("tab session not found")
	ErrCorruptRecord   = domainerrors.Corrupt("corrupt store record")
)
