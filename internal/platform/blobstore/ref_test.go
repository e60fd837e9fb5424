package blobstore

import (
	"bytes"
	"errors"
	"testing"
)

func TestRef(t *testing.T) {
	if got := Ref("abc"); got != "blob:abc" {
		t.Fatalf("expected blob:abc, got %s", got)
	}
	if id, ok := ParseRef("blob:abc"); !ok || id != "abc" {
		t.Errorf("ParseRef(blob:abc) = %q, %v", id, ok)
	}
	for _, s := range []string{"", "blob:", "data:image/png;base64,AA==", "abc", "blob:../etc/passwd", "blob:a b"} {
		if _, ok := ParseRef(s); ok {
			t.Errorf("expected ParseRef(%q) to fail", s)
		}
	}
}

func TestDataURIRoundTrip(t *testing.T) {
	uri := DataURI("image/png", pngHeader)

	ct, data, err := ParseDataURI(uri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct != "image/png" || !bytes.Equal(data, pngHeader) {
		t.Errorf("round trip mismatch: %s %v", ct, data)
	}
}

func TestParseDataURI_Invalid(t *testing.T) {
	for _, s := range []string{"blob:abc", "data:image/png,raw", "data:image/png;base64"} {
		if _, _, err := ParseDataURI(s); !errors.Is(err, ErrNotDataURI) {
			t.Errorf("ParseDataURI(%q): expected ErrNotDataURI, got %v", s, err)
		}
	}
	if _, _, err := ParseDataURI("data:image/png;base64,!!!"); !errors.Is(err, ErrNotDataURI) {
		t.Errorf("expected bad payload to wrap ErrNotDataURI, got %v", err)
	}
}

func TestParseImageDataURI(t *testing.T) {
	ct, data, err := ParseImageDataURI(DataURI("IMAGE/PNG", pngHeader))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct != "image/png" || !bytes.Equal(data, pngHeader) {
		t.Errorf("unexpected result: %s %v", ct, data)
	}

	if _, _, err := ParseImageDataURI(DataURI("text/html", []byte("<script>"))); !errors.Is(err, ErrInvalidContentType) {
		t.Errorf("expected ErrInvalidContentType, got %v", err)
	}
}

func TestCheckImageField(t *testing.T) {
	tests := []struct {
		name  string
		field string
		ok    bool
	}{
		{"empty", "", true},
		{"blob reference", Ref("0b7e6c1e-6a55-4a55-9d7c-3f2d3c1f0e11"), true},
		{"png data uri", DataURI("image/png", pngHeader), true},
		{"pdf data uri", DataURI("application/pdf", []byte("%PDF-1.4")), true},
		{"script url", "javascript:alert(1)", false},
		{"html data uri", DataURI("text/html", []byte("<script>alert(1)</script>")), false},
		{"svg data uri", DataURI("image/svg+xml", []byte("<svg/>")), false},
		{"plain data uri", "data:image/png,raw", false},
		{"bad payload", "data:image/png;base64,!!!", false},
		{"remote url", "https://example.com/knee.png", false},
		{"reference with path", "blob:../secrets", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckImageField(tt.field)
			if tt.ok && err != nil {
				t.Errorf("expected %q to be accepted, got %v", tt.field, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("expected %q to be rejected", tt.field)
			}
		})
	}
}
