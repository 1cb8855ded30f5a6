package qrimg

import (
	"bytes"
	"errors"
	"image/png"
	"strings"
	"testing"
)

func TestEncodePNG(t *testing.T) {
	encoder := NewEncoder(256, "medium")
	data, err := encoder.EncodePNG("BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Alice\r\nEND:VCARD\r\n")
	if err != nil {
		t.Fatalf("encode png failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not valid png: %v", err)
	}
	if img.Bounds().Dx() != 256 || img.Bounds().Dy() != 256 {
		t.Fatalf("unexpected image size: %v", img.Bounds())
	}
}

func TestEncodeEmptyContent(t *testing.T) {
	encoder := NewEncoder(128, "medium")
	if _, err := encoder.EncodePNG("   "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestEncoderDefaults(t *testing.T) {
	encoder := NewEncoder(0, "no-such-level")
	data, err := encoder.EncodePNG("hello")
	if err != nil {
		t.Fatalf("encode with defaults failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not valid png: %v", err)
	}
	if img.Bounds().Dx() != 300 {
		t.Fatalf("expected default size 300, got %d", img.Bounds().Dx())
	}
}

func TestDataURIRoundTrip(t *testing.T) {
	encoder := NewEncoder(128, "high")
	uri, err := encoder.EncodeDataURI("hello")
	if err != nil {
		t.Fatalf("encode data uri failed: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("unexpected data uri prefix: %q", uri[:32])
	}
	data, err := FromDataURI(uri)
	if err != nil {
		t.Fatalf("decode data uri failed: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decoded bytes are not valid png: %v", err)
	}
}

func TestFromDataURIRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"https://example.com/qr.png",
		"data:image/png;base64,@@@not-base64@@@",
	}
	for _, uri := range cases {
		if _, err := FromDataURI(uri); !errors.Is(err, ErrInvalidDataURI) {
			t.Fatalf("expected ErrInvalidDataURI for %q, got %v", uri, err)
		}
	}
}
