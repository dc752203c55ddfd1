// Package detector decides which corpus files need processing. Detection is
// fingerprint-based: a file is reprocessed only when its byte content
// changed, never because its mtime did.
package detector

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileState is the persisted record for one previously processed file.
type FileState struct {
	DocumentID  string
	Fingerprint string
	Status      string
	ChunkCount  int
	ProcessedAt time.Time
}

// Candidate is one discovered file together with its fresh fingerprint.
type Candidate struct {
	Path        string // relative to the corpus root
	AbsPath     string
	Fingerprint string
	SizeBytes   int64
	ModTime     time.Time
}

// Unreadable records a discovered file whose bytes could not be hashed.
// These are reported, never silently dropped.
type Unreadable struct {
	Path string
	Err  error
}

// Plan partitions the corpus into the three disjoint work sets plus the
// unreadable remainder.
type Plan struct {
	ToProcess  []Candidate
	Unchanged  []Candidate
	Orphaned   []string // relative paths present in state but gone from input
	Unreadable []Unreadable
}

// Supports filters discovery to files some extraction backend understands.
type Supports func(path string) bool

// Scan walks the input root, fingerprints every supported file, and diffs
// the result against the persisted state. With force set, every discovered
// file lands in ToProcess regardless of fingerprint.
func Scan(root string, state map[string]FileState, supports Supports, force bool) (*Plan, error) {
	plan := &Plan{}
	present := make(map[string]bool, len(state))

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// An unreadable subtree is reported like an unreadable file; only
			// a root that cannot be walked at all fails the scan.
			if path == root {
				return err
			}
			rel, rerr := filepath.Rel(root, path)
			if rerr != nil {
				rel = path
			}
			plan.Unreadable = append(plan.Unreadable, Unreadable{Path: filepath.ToSlash(rel), Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if supports != nil && !supports(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		present[rel] = true

		fp, size, mtime, err := Fingerprint(path)
		if err != nil {
			plan.Unreadable = append(plan.Unreadable, Unreadable{Path: rel, Err: err})
			return nil
		}
		cand := Candidate{
			Path:        rel,
			AbsPath:     path,
			Fingerprint: fp,
			SizeBytes:   size,
			ModTime:     mtime,
		}

		prev, known := state[rel]
		switch {
		case force:
			plan.ToProcess = append(plan.ToProcess, cand)
		case !known || prev.Fingerprint != fp:
			plan.ToProcess = append(plan.ToProcess, cand)
		default:
			plan.Unchanged = append(plan.Unchanged, cand)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for rel := range state {
		if !present[rel] {
			plan.Orphaned = append(plan.Orphaned, rel)
		}
	}
	sort.Strings(plan.Orphaned)
	sort.Slice(plan.ToProcess, func(i, j int) bool { return plan.ToProcess[i].Path < plan.ToProcess[j].Path })
	return plan, nil
}

// Fingerprint computes the content hash of a file along with its size and
// mtime. The hash covers bytes only, so touching a file without changing it
// does not trigger reprocessing.
func Fingerprint(path string) (string, int64, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, time.Time{}, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", 0, time.Time{}, err
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", 0, time.Time{}, err
	}
	return hex.EncodeToString(h.Sum(nil)), info.Size(), info.ModTime(), nil
}
