package entity

import "fmt"

// ExtractionResult describes the archive produced for one run.
type ExtractionResult struct {
	ArchiveLocation string
	FrameCount      int
	FrameNames      []string
	VideoDuration   float64
}

const failureSubject = "Video processing failed"

// FailureNotice is the human readable message sent when a video fails.
type FailureNotice struct {
	VideoID int64
	UserID  *int64
	Error   string
}

func (n FailureNotice) Subject() string {
	return failureSubject
}

func (n FailureNotice) Body() string {
	userLine := ""
	if n.UserID != nil {
		userLine = fmt.Sprintf("User: %d\n", *n.UserID)
	}
	return fmt.Sprintf("%s\n\nVideo ID: %d\n%sError: %s", failureSubject, n.VideoID, userLine, n.Error)
}
