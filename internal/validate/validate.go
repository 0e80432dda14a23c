package validate

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	reQ     = regexp.MustCompile(`^[\p{L}\p{N} _'.,\-]{0,50}$`)
	reID    = regexp.MustCompile(`^[0-9]{1,18}$`)
	rePrice = regexp.MustCompile(`^[0-9]{1,10}$`)
)

const (
	maxTitle       = 80
	maxDescription = 500
	maxQty         = 999
)

// Q validates a search query. Empty is valid and means "everything" to the
// repository; it is passed on unchanged.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 50 {
		return "", false
	}
	return s, reQ.MatchString(s)
}

// ID validates a listing id.
func ID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !reID.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil && n > 0
}

// Qty parses a requested line quantity. Zero and negatives are accepted
// because they mean "remove the line" to the cart.
func Qty(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n > maxQty || n < -maxQty {
		return 0, false
	}
	return n, true
}

func Title(s string) (string, bool) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	return s, n > 0 && n <= maxTitle
}

func Description(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, utf8.RuneCountInString(s) <= maxDescription
}

// Price parses a non-negative amount in minor units.
func Price(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !rePrice.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Image checks an upload by size and sniffed content type.
func Image(b []byte, maxBytes int) (string, bool) {
	if len(b) == 0 || len(b) > maxBytes {
		return "", false
	}
	ct := http.DetectContentType(b)
	return ct, imageTypes[ct]
}
