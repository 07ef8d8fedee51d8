package entity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Envelope is one delivery taken from the work queue. Receipt is the
// transport-specific handle needed to acknowledge it.
type Envelope struct {
	ID      string
	Body    []byte
	Receipt string
}

// WorkItem is the inbound message describing one uploaded video to process.
type WorkItem struct {
	VideoID   int64  `json:"video_id"`
	VideoPath string `json:"video_path"`
	Timestamp string `json:"timestamp"`
	UserID    *int64 `json:"user_id,omitempty"`
	ObjectKey string `json:"s3_key,omitempty"`
}

// ParseWorkItem decodes a queue payload. Malformed content is reported as ErrValidation.
func ParseWorkItem(body []byte) (*WorkItem, error) {
	var item WorkItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrValidation, err)
	}
	return &item, nil
}

// Validate checks the required fields and that the timestamp can be used as a
// single path component.
func (w *WorkItem) Validate() error {
	var missing []string
	if w.VideoID <= 0 {
		missing = append(missing, "video_id")
	}
	if strings.TrimSpace(w.VideoPath) == "" {
		missing = append(missing, "video_path")
	}
	if w.Timestamp == "" {
		missing = append(missing, "timestamp")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if !SafePathComponent(w.Timestamp) {
		return fmt.Errorf("%w: timestamp %q is not a safe path component", ErrValidation, w.Timestamp)
	}
	return nil
}

// SafePathComponent reports whether s names exactly one directory entry.
func SafePathComponent(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}

// StatusEvent is published after a terminal status has been recorded.
type StatusEvent struct {
	VideoID    int64  `json:"video_id"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	FilePath   string `json:"file_path,omitempty"`
	Error      string `json:"error,omitempty"`
}
