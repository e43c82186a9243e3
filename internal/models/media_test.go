package models

import "testing"

func TestParseMediaType(t *testing.T) {
	for _, raw := range []string{"pdf", "IMAGE", " video ", "Audio", "url"} {
		if _, err := ParseMediaType(raw); err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
	}
	if _, err := ParseMediaType(""); err == nil {
		t.Fatalf("expected error for empty mode")
	}
	if _, err := ParseMediaType("docx"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestMediaTypeKinds(t *testing.T) {
	if MediaPDF.IsAsset() || MediaURL.IsAsset() {
		t.Fatalf("text modes must not be asset modes")
	}
	for _, m := range []MediaType{MediaImage, MediaVideo, MediaAudio} {
		if !m.IsAsset() {
			t.Fatalf("%s should be an asset mode", m)
		}
		if m.MultipleFiles() {
			t.Fatalf("%s accepts exactly one file", m)
		}
	}
	if !MediaPDF.MultipleFiles() {
		t.Fatalf("pdf accepts multiple files")
	}
}

func TestAssetStateReadiness(t *testing.T) {
	if !AssetStateActive.IsReady() || !AssetStateUnspecified.IsReady() {
		t.Fatalf("non-processing, non-failed states are ready")
	}
	if AssetStateProcessing.IsReady() || AssetStateFailed.IsReady() {
		t.Fatalf("processing and failed are not ready")
	}
}
