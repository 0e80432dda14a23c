package domain

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// Listing is a sellable item as published by the remote API. Values are
// never mutated in place; an update produces a new Listing.
type Listing struct {
	ID          int64  `json:"id" db:"id"`
	Title       string `json:"titulo" db:"title"`
	Description string `json:"descripcion" db:"description"`
	Price       int64  `json:"precio" db:"price"` // minor units
	ImageRef    string `json:"urlImg" db:"image_ref"`
}

// ImageURL returns the image reference when it points at an http(s) resource.
func (l Listing) ImageURL() (string, bool) {
	ref := strings.TrimSpace(l.ImageRef)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, true
	}
	return "", false
}

// ImageData decodes an inline base64 image, raw or wrapped in a data URI.
func (l Listing) ImageData() ([]byte, bool) {
	ref := strings.TrimSpace(l.ImageRef)
	if ref == "" {
		return nil, false
	}
	if _, ok := l.ImageURL(); ok {
		return nil, false
	}
	if i := strings.Index(ref, "base64,"); i >= 0 {
		ref = ref[i+len("base64,"):]
	}
	b, err := base64.StdEncoding.DecodeString(ref)
	if err != nil {
		// some backends strip the padding
		b, err = base64.RawStdEncoding.DecodeString(ref)
		if err != nil {
			return nil, false
		}
	}
	return b, len(b) > 0
}

// ImageMIME reports the content type of the inline image.
func (l Listing) ImageMIME() string {
	ref := strings.TrimSpace(l.ImageRef)
	if strings.HasPrefix(ref, "data:") {
		if end := strings.Index(ref, ";"); end > len("data:") {
			return ref[len("data:"):end]
		}
	}
	if b, ok := l.ImageData(); ok {
		return http.DetectContentType(b)
	}
	return "application/octet-stream"
}

// DataURI wraps raw image bytes the way listings carry inline images.
func DataURI(mime string, b []byte) string {
	if mime == "" {
		mime = http.DetectContentType(b)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
}
