// Package asset packages the Lambda handler code directory into a
// content-addressed zip archive.
package asset

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ObjectKeyPrefix prefixes every packaged object key.
const ObjectKeyPrefix = "asset."

// ManifestFile is written next to the archive and records the last package.
const ManifestFile = "asset.json"

// modTime is stamped on every entry so identical inputs hash identically.
var modTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

var skipDirs = []string{".git", filepath.Join("node_modules", ".cache")}

// Manifest describes a packaged asset.
type Manifest struct {
	Hash      string `json:"hash"`
	ObjectKey string `json:"object_key"`
	Path      string `json:"path"`
	Files     int    `json:"files"`
	Size      int64  `json:"size"`
	Source    string `json:"source"`
}

// Package zips dir into outDir/asset.<hash>.zip and returns its manifest.
// Entries are sorted and timestamps fixed, so unchanged code yields the
// same hash and object key.
func Package(dir, outDir string) (Manifest, error) {
	files, err := collect(dir)
	if err != nil {
		return Manifest{}, err
	}
	if len(files) == 0 {
		return Manifest{}, fmt.Errorf("asset directory %s contains no files", dir)
	}

	var buf bytes.Buffer
	if err := writeZip(&buf, dir, files); err != nil {
		return Manifest{}, err
	}

	sum := sha256.Sum256(buf.Bytes())
	hash := hex.EncodeToString(sum[:])
	key := ObjectKeyPrefix + hash + ".zip"

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create output dir %s: %w", outDir, err)
	}
	path := filepath.Join(outDir, key)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write asset %s: %w", path, err)
	}

	source, err := filepath.Abs(dir)
	if err != nil {
		return Manifest{}, err
	}
	m := Manifest{
		Hash:      hash,
		ObjectKey: key,
		Path:      path,
		Files:     len(files),
		Size:      int64(buf.Len()),
		Source:    source,
	}
	if err := writeManifest(outDir, m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// ReadManifest returns the manifest of the last asset packaged into outDir.
// The error wraps fs.ErrNotExist when nothing has been packaged there.
func ReadManifest(outDir string) (Manifest, error) {
	path := filepath.Join(outDir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if m.ObjectKey == "" {
		return Manifest{}, fmt.Errorf("%s has no object_key", path)
	}
	return m, nil
}

// Packaged reports whether m was built from dir.
func (m Manifest) Packaged(dir string) bool {
	abs, err := filepath.Abs(dir)
	return err == nil && m.Source == abs
}

func writeManifest(outDir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(outDir, ManifestFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// collect returns the slash-separated relative paths of regular files
// under dir, sorted.
func collect(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("read asset directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset path %s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && skipped(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func skipped(rel string) bool {
	for _, s := range skipDirs {
		if rel == s || strings.HasSuffix(rel, string(filepath.Separator)+s) {
			return true
		}
	}
	return false
}

func writeZip(w io.Writer, dir string, files []string) error {
	zw := zip.NewWriter(w)
	for _, name := range files {
		if err := addFile(zw, dir, name); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, dir, name string) error {
	src := filepath.Join(dir, filepath.FromSlash(name))
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modTime,
	}
	// Preserve the executable bit.
	mode := os.FileMode(0o644)
	if info.Mode()&0o111 != 0 {
		mode = 0o755
	}
	header.SetMode(mode)

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}
