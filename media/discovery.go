// Package media finds, validates and materializes media files referenced
// from document blocks.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"blockdoc/block"
	"blockdoc/config"
	"blockdoc/utils/paths"
)

// EmbedFactor approximates base64 expansion with data URL prefix.
const EmbedFactor = 1.37

// how much of the file is read to sniff type and image dimensions
const headSize = 64 * 1024

// MediaInfo describes single referenced file.
type MediaInfo struct {
	Path          string `json:"path"`
	Size          int64  `json:"size"`
	MimeType      string `json:"mime_type"`
	Exists        bool   `json:"exists"`
	Valid         bool   `json:"valid"`
	Error         string `json:"error,omitempty"`
	EstimatedSize int64  `json:"estimated_size"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
}

// Limits are size thresholds in bytes.
type Limits struct {
	MaxFileSize   int64 `json:"max_file_size"`
	WarnFileSize  int64 `json:"warn_file_size"`
	WarnTotalSize int64 `json:"warn_total_size"`
	MaxTotalSize  int64 `json:"max_total_size"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:   50 << 20,
		WarnFileSize:  5 << 20,
		WarnTotalSize: 25 << 20,
		MaxTotalSize:  100 << 20,
	}
}

func LimitsFromConfig(cfg *config.MediaConfig) Limits {
	if cfg == nil {
		return DefaultLimits()
	}
	return Limits{
		MaxFileSize:   cfg.MaxFileSize,
		WarnFileSize:  cfg.WarnFileSize,
		WarnTotalSize: cfg.WarnTotalSize,
		MaxTotalSize:  cfg.MaxTotalSize,
	}
}

// Estimate aggregates discovery results, it is used as pre-flight gate
// before embedding.
type Estimate struct {
	TotalOriginal  int64    `json:"total_original"`
	TotalEmbedded  int64    `json:"total_embedded"`
	ValidCount     int      `json:"valid_count"`
	InvalidCount   int      `json:"invalid_count"`
	LargeFiles     []string `json:"large_files,omitempty"`
	Problematic    []string `json:"problematic,omitempty"`
	ExceedsWarning bool     `json:"exceeds_warning"`
	ExceedsLimit   bool     `json:"exceeds_limit"`
}

// Discovery inspects media referenced by a document. It keeps no state
// between calls.
type Discovery struct {
	limits Limits
	log    *zap.Logger
}

func NewDiscovery(limits Limits, log *zap.Logger) *Discovery {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discovery{limits: limits, log: log}
}

func (d *Discovery) Limits() Limits {
	return d.limits
}

// DiscoverAllMedia visits every block including nested tab children and
// returns information for each unique normalized reference.
func (d *Discovery) DiscoverAllMedia(doc block.Document) map[string]*MediaInfo {
	out := make(map[string]*MediaInfo)
	for b := range doc.All() {
		for _, ref := range b.MediaReferences() {
			p := paths.Normalize(ref)
			if p == "" {
				continue
			}
			if _, seen := out[p]; seen {
				continue
			}
			out[p] = d.Inspect(p)
		}
	}
	d.log.Debug("Media discovered", zap.Int("files", len(out)))
	return out
}

// Inspect examines single already normalized path. It never fails, problems
// are reported through MediaInfo.Error.
func (d *Discovery) Inspect(p string) *MediaInfo {
	info := &MediaInfo{Path: p}

	fi, err := os.Stat(p)
	if err != nil {
		info.MimeType = DetectMIME(p, nil)
		if errors.Is(err, os.ErrNotExist) {
			info.Error = "file not found"
		} else {
			info.Error = fmt.Sprintf("unable to access file: %v", err)
		}
		return info
	}
	if !fi.Mode().IsRegular() {
		info.Exists = true
		info.MimeType = DetectMIME(p, nil)
		info.Error = "not a regular file"
		return info
	}
	info.Exists = true
	info.Size = fi.Size()
	info.EstimatedSize = EmbeddedSize(info.Size)

	head, err := readHead(p, headSize)
	info.MimeType = DetectMIME(p, head)

	switch {
	case !IsSupported(p):
		info.Error = "unsupported file type"
	case d.limits.MaxFileSize > 0 && info.Size > d.limits.MaxFileSize:
		info.Error = fmt.Sprintf("file too large (%d bytes, limit %d)", info.Size, d.limits.MaxFileSize)
	case err != nil:
		info.Error = fmt.Sprintf("unable to read file: %v", err)
	case len(head) == 0:
		info.Error = "file is empty"
	default:
		info.Valid = true
	}
	if !info.Valid {
		return info
	}

	data := head
	if info.MimeType == "image/svg+xml" && int64(len(head)) < info.Size {
		if data, err = os.ReadFile(p); err != nil {
			info.Valid, info.Error = false, fmt.Sprintf("unable to read file: %v", err)
			return info
		}
	}
	if err := checkContent(info.MimeType, data); err != nil {
		info.Valid, info.Error = false, err.Error()
		return info
	}
	if KindOf(p) == KindImage {
		info.Width, info.Height = dimensions(head)
	}
	return info
}

// Estimate computes aggregate sizes over valid files, invalid ones are
// never embedded.
func (d *Discovery) Estimate(infos map[string]*MediaInfo) Estimate {
	var e Estimate
	for _, info := range infos {
		if !info.Valid {
			e.InvalidCount++
			e.Problematic = append(e.Problematic, info.Path)
			continue
		}
		e.ValidCount++
		e.TotalOriginal += info.Size
		e.TotalEmbedded += info.EstimatedSize
		if d.limits.WarnFileSize > 0 && info.Size > d.limits.WarnFileSize {
			e.LargeFiles = append(e.LargeFiles, info.Path)
		}
	}
	slices.SortFunc(e.Problematic, naturalCompare)
	slices.SortFunc(e.LargeFiles, naturalCompare)
	e.ExceedsWarning = d.limits.WarnTotalSize > 0 && e.TotalEmbedded > d.limits.WarnTotalSize
	e.ExceedsLimit = d.limits.MaxTotalSize > 0 && e.TotalEmbedded > d.limits.MaxTotalSize
	return e
}

// ValidPaths returns naturally sorted paths of valid files.
func ValidPaths(infos map[string]*MediaInfo) []string {
	var out []string
	for p, info := range infos {
		if info.Valid {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, naturalCompare)
	return out
}

func EmbeddedSize(size int64) int64 {
	return int64(float64(size) * EmbedFactor)
}

func naturalCompare(a, b string) int {
	switch {
	case a == b:
		return 0
	case natural.Less(a, b):
		return -1
	default:
		return 1
	}
}

func readHead(p string, n int) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:read], nil
}
