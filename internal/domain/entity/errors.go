package entity

import "errors"

// Error kinds produced by the pipeline. Adapters wrap them with context, callers
// classify with errors.Is.
var (
	ErrValidation     = errors.New("invalid work item")
	ErrStaging        = errors.New("staging failed")
	ErrExtractionTool = errors.New("extraction tool failed")
	ErrEmptyOutput    = errors.New("extraction produced no frames")
	ErrArchive        = errors.New("archive packaging failed")
	ErrUpload         = errors.New("archive upload failed")
	ErrNotFound       = errors.New("video not found")
	ErrPersistence    = errors.New("status persistence failed")
	ErrQueueTransport = errors.New("queue transport failed")
)
