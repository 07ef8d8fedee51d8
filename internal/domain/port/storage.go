package port

import "context"

// ObjectStore moves blobs between the object store and local disk.
type ObjectStore interface {
	Download(ctx context.Context, objectKey string, destPath string) error
	Upload(ctx context.Context, srcPath string, objectKey string) error
	URI(objectKey string) string
}

// ArchiveSink decides where a finished archive lives and returns its canonical location.
type ArchiveSink interface {
	Store(ctx context.Context, archivePath string) (string, error)
}
