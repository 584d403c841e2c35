// Package execdata manages the on-disk layout of one file execution's
// working state (spec.md §6.3): the cached SOURCE/INFILE bytes, the
// extracted-text and summary caches, the METADATA.json sidecar, and the
// final structure-tool output artifact.
package execdata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

const (
	sourceFile   = "SOURCE"
	infileFile   = "INFILE"
	metadataFile = "METADATA.json"
	extractFile  = "EXTRACT"
	summarizeFile = "SUMMARIZE"
)

// Store is a handle onto one file execution's <execution_dir>/<file_execution_id>
// directory.
type Store struct {
	dir string
}

// New returns a Store rooted at dir. dir must already exist; New does not
// create it (the pipeline driver owns directory lifecycle, not this
// package).
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the execution data directory this Store is rooted at.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// WriteSource persists data to both SOURCE and INFILE, which start out
// identical (spec.md §6.3: INFILE is "handed to next tool in chain").
func (s *Store) WriteSource(data []byte) error {
	if err := os.WriteFile(s.path(sourceFile), data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(s.path(infileFile), data, 0o644)
}

// ReadExtract returns the cached EXTRACT file's contents. ok is false when
// no cache exists yet.
func (s *Store) ReadExtract() (text string, ok bool, err error) {
	return s.readCachedText(extractFile)
}

// WriteExtract caches text for later dispatches to re-read (spec.md §4.8.1
// step 6, §4.8.2 "extract is called at most once per file").
func (s *Store) WriteExtract(text string) error {
	return os.WriteFile(s.path(extractFile), []byte(text), 0o644)
}

// ReadSummarize returns the cached SUMMARIZE file's contents, if any
// (spec.md §4.8.1 step 7).
func (s *Store) ReadSummarize() (text string, ok bool, err error) {
	return s.readCachedText(summarizeFile)
}

// WriteSummarize caches the summarization result.
func (s *Store) WriteSummarize(text string) error {
	return os.WriteFile(s.path(summarizeFile), []byte(text), 0o644)
}

func (s *Store) readCachedText(name string) (string, bool, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// ReadMetadata loads METADATA.json, returning an empty map if it does not
// exist yet.
func (s *Store) ReadMetadata() (map[string]any, error) {
	data, err := os.ReadFile(s.path(metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// EnsureMetadata writes initial as METADATA.json only if the file does not
// already exist. An existing METADATA.json always wins: it may already
// hold tool-produced metadata that predates this worker's pass (spec.md
// §4.8.2).
func (s *Store) EnsureMetadata(initial map[string]any) error {
	if _, err := os.Stat(s.path(metadataFile)); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return s.writeMetadata(initial)
}

// MergeMetadata read-modify-writes METADATA.json, overlaying patch's keys
// onto whatever is already there without disturbing keys patch does not
// mention (the same merge discipline the extract handler uses for
// whisper_hash).
func (s *Store) MergeMetadata(patch map[string]any) error {
	doc, err := s.ReadMetadata()
	if err != nil {
		return err
	}
	for k, v := range patch {
		doc[k] = v
	}
	return s.writeMetadata(doc)
}

func (s *Store) writeMetadata(doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(metadataFile), data, 0o644)
}

// WriteOutputArtifact writes doc as the final structure-tool output to
// <outputDir>/<stem(sourceFileName)>.json and also overwrites this store's
// INFILE, so a chained next tool sees this tool's output as its input
// (spec.md §4.8.1 step 11).
func (s *Store) WriteOutputArtifact(outputDir, sourceFileName string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	artifactPath := filepath.Join(outputDir, Stem(sourceFileName)+".json")
	if err := os.WriteFile(artifactPath, data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(s.path(infileFile), data, 0o644)
}

// Stem returns fileName with its final extension removed, e.g.
// "invoice.pdf" -> "invoice".
func Stem(fileName string) string {
	base := filepath.Base(fileName)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}
