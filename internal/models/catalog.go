// Package models discovers and selects the on-disk model catalog under
// a models directory laid out as <kind>/<version>/metadata.json plus a
// binary (model.onnx, model.ort, or model). Loading the model itself is
// out of scope; this package only answers "which version, if any, is
// the best one available".
package models

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// Kind enumerates the model categories the catalog knows about.
const (
	KindFaceDetection = "face_detection"
	KindLiveness      = "liveness"
)

var knownKinds = []string{KindFaceDetection, KindLiveness}

var candidateBinaries = []string{"model.onnx", "model.ort", "model"}

// InputSpec describes one named tensor input a model expects.
type InputSpec struct {
	Name   string    `json:"name"`
	Shape  []int64   `json:"shape"`
	Layout string    `json:"layout"`
	Mean   []float64 `json:"mean,omitempty"`
	Std    []float64 `json:"std,omitempty"`
}

// Metadata is the metadata.json sidecar describing one model version.
type Metadata struct {
	Name     string      `json:"name"`
	Version  string      `json:"version"`
	URL      string      `json:"url"`
	SHA256   string      `json:"sha256"`
	Inputs   []InputSpec `json:"inputs"`
	License  string      `json:"license"`
	Accuracy *float64    `json:"accuracy,omitempty"`
}

// CatalogEntry lists the versions discovered for one model kind,
// regardless of whether a binary is present alongside the metadata.
type CatalogEntry struct {
	Kind     string
	Versions []string
}

// Selection is one kind's chosen model: the version, its on-disk binary
// path, and its metadata.
type Selection struct {
	Kind     string
	Version  string
	Path     string
	Metadata Metadata
}

// SelectedCatalog holds the best selection for each known kind, if any.
type SelectedCatalog struct {
	FaceDetection *Selection
	Liveness      *Selection
}

// InspectDir lists, for every known kind, every version subdirectory
// that contains a metadata.json — regardless of whether a usable binary
// is present. Read-only: errors walking a kind directory are treated as
// "no versions found" rather than surfaced, since a missing models
// directory is a normal deployment state.
func InspectDir(baseDir string) []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(knownKinds))
	for _, kind := range knownKinds {
		kindDir := filepath.Join(baseDir, kind)
		items, err := os.ReadDir(kindDir)
		var versions []string
		if err == nil {
			for _, item := range items {
				if !item.IsDir() {
					continue
				}
				metaPath := filepath.Join(kindDir, item.Name(), "metadata.json")
				if fileExists(metaPath) {
					versions = append(versions, item.Name())
				}
			}
		}
		sort.Strings(versions)
		entries = append(entries, CatalogEntry{Kind: kind, Versions: versions})
	}
	return entries
}

// SelectBest inspects baseDir and picks, for each known kind, the
// version with the highest declared accuracy (missing accuracy sorts
// lowest), breaking ties by descending lexicographic version.
func SelectBest(baseDir string) SelectedCatalog {
	var out SelectedCatalog
	out.FaceDetection = pickBest(discoverKind(baseDir, KindFaceDetection), KindFaceDetection)
	out.Liveness = pickBest(discoverKind(baseDir, KindLiveness), KindLiveness)
	return out
}

type candidate struct {
	version  string
	metadata Metadata
	path     string
}

func discoverKind(baseDir, kind string) []candidate {
	kindDir := filepath.Join(baseDir, kind)
	items, err := os.ReadDir(kindDir)
	if err != nil {
		return nil
	}

	var out []candidate
	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		version := item.Name()
		versionDir := filepath.Join(kindDir, version)
		metaPath := filepath.Join(versionDir, "metadata.json")
		if !fileExists(metaPath) {
			continue
		}
		meta, err := readMetadata(metaPath)
		if err != nil {
			continue
		}
		binPath, ok := findBinary(versionDir)
		if !ok {
			continue
		}
		out = append(out, candidate{version: version, metadata: meta, path: binPath})
	}
	return out
}

func findBinary(versionDir string) (string, bool) {
	for _, name := range candidateBinaries {
		p := filepath.Join(versionDir, name)
		if fileExists(p) {
			return p, true
		}
	}
	return "", false
}

// pickBest orders candidates by descending accuracy (nil treated as
// negative infinity), then descending lexicographic version, and
// returns the winner.
func pickBest(items []candidate, kind string) *Selection {
	if len(items) == 0 {
		return nil
	}
	sort.SliceStable(items, func(i, j int) bool {
		ai, aj := accuracyOf(items[i]), accuracyOf(items[j])
		if ai != aj {
			return ai > aj
		}
		return items[i].version > items[j].version
	})
	best := items[0]
	return &Selection{
		Kind:     kind,
		Version:  best.version,
		Path:     best.path,
		Metadata: best.metadata,
	}
}

func accuracyOf(c candidate) float64 {
	if c.metadata.Accuracy == nil {
		return math.Inf(-1)
	}
	return *c.metadata.Accuracy
}

func readMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
