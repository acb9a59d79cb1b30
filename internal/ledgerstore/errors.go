package ledgerstore

import "errors"

var (
	ErrNotConnected     = errors.New("ledger store is not connected")
	ErrWriteFailure     = errors.New("ledger store rejected the write")
	ErrInvalidPath      = errors.New("invalid ledger path")
	ErrOverlappingPaths = errors.New("overlapping ledger paths")
	ErrDocumentNotFound = errors.New("ledger document not found")
)
