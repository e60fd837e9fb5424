package blobstore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// RefPrefix marks a patient x-ray field that points at a stored blob rather
// than carrying the image inline as a data URI.
const RefPrefix = "blob:"

var ErrNotDataURI = errors.New("not a base64 data URI")

var refID = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

func Ref(id string) string { return RefPrefix + id }

// ParseRef extracts the blob id from a reference. Ids are limited to letters,
// digits and dashes so they are always safe as object keys.
func ParseRef(s string) (string, bool) {
	id, ok := strings.CutPrefix(s, RefPrefix)
	if !ok || !refID.MatchString(id) {
		return "", false
	}
	return id, true
}

// DataURI encodes content as "data:<type>;base64,<payload>".
func DataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI decodes a base64 data URI into its media type and bytes. Every
// malformed input, including a bad payload, wraps ErrNotDataURI.
func ParseDataURI(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	contentType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNotDataURI, err)
	}
	return strings.ToLower(contentType), data, nil
}

// ParseImageDataURI is ParseDataURI restricted to the accepted imaging types
// and MaxFileSize.
func ParseImageDataURI(s string) (string, []byte, error) {
	contentType, data, err := ParseDataURI(s)
	if err != nil {
		return "", nil, err
	}
	if !AllowedContentTypes[contentType] {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidContentType, contentType)
	}
	if len(data) > MaxFileSize {
		return "", nil, ErrFileTooLarge
	}
	return contentType, data, nil
}

// CheckImageField accepts what a patient's x-ray field may hold: nothing, a
// blob reference, or an image data URI.
func CheckImageField(s string) error {
	if s == "" {
		return nil
	}
	if _, ok := ParseRef(s); ok {
		return nil
	}
	if !strings.HasPrefix(s, "data:") {
		return fmt.Errorf("must be a %q reference or a base64 data URI", RefPrefix)
	}
	_, _, err := ParseImageDataURI(s)
	return err
}
