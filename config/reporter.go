package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"blockdoc/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty report. When destination cannot be created report
// goes to temporary directory.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	r := &Report{entries: make(map[string]entry)}

	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	r.file = f
	return r, nil
}

type entry struct {
	// path as given by caller, empty for data entries
	original string
	// what goes to the archive: live path or snapshot location
	actual string
	stamp  time.Time
	data   []byte
}

// Report accumulates projects, themes, generated pages and logs for the
// debug archive. All methods are no-ops on nil report, so callers do not have
// to check whether --debug was requested.
type Report struct {
	mu      sync.Mutex
	entries map[string]entry
	file    *os.File
	// snapshots made by StoreCopy, removed on Close
	tmpDirs []string
}

// Close writes the archive and removes snapshots.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.file.Close()
	defer func() {
		for _, d := range r.tmpDirs {
			os.RemoveAll(d)
		}
		r.tmpDirs = nil
	}()
	return r.finalize()
}

// Name returns absolute name of the archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store adds file or directory which is read when report is closed. Storing
// the same path under the same name twice is ignored, other collisions get
// versioned names: directory export may process several projects with the
// same base name.
func (r *Report) Store(name, p string) {
	if r == nil {
		return
	}
	e := entry{original: p, actual: p}
	if abs, err := filepath.Abs(p); err == nil {
		e.actual = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.versions(name) {
		if old := r.entries[n]; old.data == nil && old.original == p {
			return
		}
	}
	r.entries[r.freeName(name)] = e
}

// StoreData adds content under name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	if data == nil {
		data = []byte{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.freeName(name)] = entry{data: data, stamp: time.Now()}
}

// StoreCopy snapshots file or directory now, later changes to the original
// do not affect the report.
func (r *Report) StoreCopy(name, p string) error {
	if r == nil {
		return nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", misc.GetAppName()+"-r-")
	if err != nil {
		return err
	}
	e := entry{original: p, stamp: time.Now()}
	switch {
	case info.Mode().IsRegular():
		e.actual, err = snapshotFile(dir, abs, info.ModTime())
	case info.IsDir():
		e.actual, err = dir, snapshotDir(dir, abs)
	default:
		err = fmt.Errorf("unable to store %q: not a file or directory", p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tmpDirs = append(r.tmpDirs, dir)
	if err != nil {
		return err
	}
	r.entries[r.freeName(name)] = e
	return nil
}

// versioned returns n-th version of name, suffix goes before extension.
func versioned(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext)
}

// versions lists taken versions of name. Must be called under lock.
func (r *Report) versions(name string) []string {
	var taken []string
	for n := 0; ; n++ {
		v := versioned(name, n)
		if _, ok := r.entries[v]; !ok {
			return taken
		}
		taken = append(taken, v)
	}
}

// freeName returns name or its first free version. Must be called under lock.
func (r *Report) freeName(name string) string {
	return versioned(name, len(r.versions(name)))
}

func snapshotFile(dir, src string, modTime time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dst, os.Chtimes(dst, modTime, modTime)
}

func snapshotDir(dir, src string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		_, err = snapshotFile(filepath.Dir(filepath.Join(dir, rel)), p, info.ModTime())
		return err
	})
}

// finalize writes MANIFEST followed by every entry in name order. Entries
// whose files are gone by now are listed in manifest only.
func (r *Report) finalize() error {
	arc := zip.NewWriter(r.file)
	defer arc.Close()

	names := slices.Sorted(maps.Keys(r.entries))
	if err := saveFile(arc, "MANIFEST", time.Now(), manifest(names, r.entries)); err != nil {
		return err
	}

	for _, name := range names {
		e := r.entries[name]
		if e.data != nil {
			if err := saveFile(arc, name, e.stamp, bytes.NewReader(e.data)); err != nil {
				return err
			}
			continue
		}
		info, err := os.Stat(e.actual)
		if err != nil {
			continue
		}
		switch {
		case info.Mode().IsRegular():
			if err := saveOpened(arc, name, e.actual, info.ModTime()); err != nil {
				return err
			}
		case info.IsDir():
			if err := saveDir(arc, name, e.actual); err != nil {
				return err
			}
		}
	}
	return nil
}

func manifest(names []string, entries map[string]entry) *bytes.Buffer {
	now := time.Now()
	buf := new(bytes.Buffer)
	for _, name := range names {
		e := entries[name]
		stamp := e.stamp
		if stamp.IsZero() {
			stamp = now
		}
		source := "<data>"
		if e.data == nil {
			source = e.original + " : " + e.actual
		}
		fmt.Fprintf(buf, "%s\t%s\t%s\n", stamp.UTC().Format(time.UnixDate), name, source)
	}
	return buf
}

func saveFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func saveOpened(dst *zip.Writer, name, p string, t time.Time) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	return saveFile(dst, name, t, f)
}

func saveDir(dst *zip.Writer, name, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return saveOpened(dst, path.Join(name, filepath.ToSlash(rel)), p, info.ModTime())
	})
}
