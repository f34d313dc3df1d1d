package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeModelVersion(t *testing.T, baseDir, kind, version string, accuracy *float64, withBinary bool) {
	t.Helper()
	dir := filepath.Join(baseDir, kind, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	meta := Metadata{
		Name:     kind,
		Version:  version,
		URL:      "https://example.invalid/" + version,
		SHA256:   "deadbeef",
		License:  "MIT",
		Accuracy: accuracy,
		Inputs: []InputSpec{
			{Name: "input", Shape: []int64{1, 3, 640, 640}, Layout: "NCHW"},
		},
	}
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	if withBinary {
		if err := os.WriteFile(filepath.Join(dir, "model.onnx"), []byte("binary"), 0o644); err != nil {
			t.Fatalf("write binary: %v", err)
		}
	}
}

func f(v float64) *float64 { return &v }

func TestInspectDirListsVersionsWithMetadata(t *testing.T) {
	dir := t.TempDir()
	writeModelVersion(t, dir, KindFaceDetection, "v1", f(0.9), true)
	writeModelVersion(t, dir, KindFaceDetection, "v2", f(0.95), false) // no binary, still has metadata

	entries := InspectDir(dir)
	var fd CatalogEntry
	for _, e := range entries {
		if e.Kind == KindFaceDetection {
			fd = e
		}
	}
	if len(fd.Versions) != 2 {
		t.Fatalf("expected 2 versions with metadata, got %+v", fd.Versions)
	}
}

func TestSelectBestPicksHighestAccuracy(t *testing.T) {
	dir := t.TempDir()
	writeModelVersion(t, dir, KindFaceDetection, "v1", f(0.80), true)
	writeModelVersion(t, dir, KindFaceDetection, "v2", f(0.95), true)
	writeModelVersion(t, dir, KindFaceDetection, "v3", f(0.10), true)

	sel := SelectBest(dir)
	if sel.FaceDetection == nil || sel.FaceDetection.Version != "v2" {
		t.Fatalf("expected v2 selected as highest accuracy, got %+v", sel.FaceDetection)
	}
}

func TestSelectBestTiebreaksOnDescendingVersion(t *testing.T) {
	dir := t.TempDir()
	writeModelVersion(t, dir, KindLiveness, "v1.0.0", f(0.9), true)
	writeModelVersion(t, dir, KindLiveness, "v1.2.0", f(0.9), true)

	sel := SelectBest(dir)
	if sel.Liveness == nil || sel.Liveness.Version != "v1.2.0" {
		t.Fatalf("expected lexicographically-greatest version to win tie, got %+v", sel.Liveness)
	}
}

func TestSelectBestSkipsVersionsWithoutBinary(t *testing.T) {
	dir := t.TempDir()
	writeModelVersion(t, dir, KindFaceDetection, "v1", f(0.99), false)

	sel := SelectBest(dir)
	if sel.FaceDetection != nil {
		t.Fatalf("expected no selection when no binary is present, got %+v", sel.FaceDetection)
	}
}

func TestSelectBestReturnsNilForMissingDir(t *testing.T) {
	sel := SelectBest(filepath.Join(t.TempDir(), "does-not-exist"))
	if sel.FaceDetection != nil || sel.Liveness != nil {
		t.Fatalf("expected nil selections for missing models dir, got %+v", sel)
	}
}

func TestSelectBestTreatsMissingAccuracyAsLowest(t *testing.T) {
	dir := t.TempDir()
	writeModelVersion(t, dir, KindFaceDetection, "v1", nil, true)
	writeModelVersion(t, dir, KindFaceDetection, "v2", f(0.01), true)

	sel := SelectBest(dir)
	if sel.FaceDetection == nil || sel.FaceDetection.Version != "v2" {
		t.Fatalf("expected version with declared accuracy to beat missing accuracy, got %+v", sel.FaceDetection)
	}
}
