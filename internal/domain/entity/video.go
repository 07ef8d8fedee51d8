package entity

import "fmt"

// VideoStatus is the persisted status code of a video record.
type VideoStatus int

const (
	VideoStatusPending   VideoStatus = 0
	VideoStatusProcessed VideoStatus = 1
	VideoStatusFailed    VideoStatus = 2
)

func (s VideoStatus) String() string {
	switch s {
	case VideoStatusPending:
		return "PENDING"
	case VideoStatusProcessed:
		return "PROCESSED"
	case VideoStatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Terminal reports whether the status is one a work item may leave the pipeline in.
func (s VideoStatus) Terminal() bool {
	return s == VideoStatusProcessed || s == VideoStatusFailed
}

func (s VideoStatus) Valid() bool {
	return s == VideoStatusPending || s.Terminal()
}

// Video is the status record tracked for an uploaded video. Records are
// created by the upload side; the worker only mutates Status and FilePath.
type Video struct {
	ID       int64
	UserID   int64
	Title    string
	FilePath string
	Status   VideoStatus
}
