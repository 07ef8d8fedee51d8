package entity

import "strings"

const (
	SchemeS3  = "s3"
	SchemeGCS = "gs"
)

var remoteSchemes = []string{SchemeS3 + "://", SchemeGCS + "://"}

// ExtractObjectKey resolves the object key a work item refers to. An explicit
// key always wins. Otherwise videoPath must look like scheme://bucket/key and
// the key is everything after the first slash following the bucket.
func ExtractObjectKey(videoPath, explicitKey string) (string, bool) {
	if explicitKey != "" {
		key := strings.TrimLeft(explicitKey, "/")
		return key, key != ""
	}

	for _, prefix := range remoteSchemes {
		rest, ok := strings.CutPrefix(videoPath, prefix)
		if !ok {
			continue
		}
		_, key, found := strings.Cut(rest, "/")
		if !found || key == "" {
			return "", false
		}
		return key, true
	}
	return "", false
}

// ObjectURI builds the canonical reference for an object, e.g. s3://bucket/outputs/a.zip.
func ObjectURI(scheme, bucket, key string) string {
	return scheme + "://" + bucket + "/" + strings.TrimLeft(key, "/")
}
