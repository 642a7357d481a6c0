package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// AssetName produces file system and URL safe name for copied media,
// keeping lower-cased extension.
func AssetName(src string) string {
	ext := strings.ToLower(filepath.Ext(src))
	base := slug.Make(strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)))
	if base == "" {
		base = "asset"
	}
	return base + ext
}

// AssetCopy is the outcome of CopyAssets.
type AssetCopy struct {
	Dir string
	// source path to relative reference "dirName/name"
	Mapping map[string]string
	// files written by this call, identical files already present are reused
	// and not listed
	Created []string
}

// Rollback removes files created by the copy and the assets directory when
// nothing else is left in it.
func (a *AssetCopy) Rollback() (err error) {
	for _, p := range a.Created {
		if er := os.Remove(p); er != nil && !errors.Is(er, fs.ErrNotExist) {
			err = multierr.Append(err, er)
		}
	}
	a.Created = nil
	if entries, er := os.ReadDir(a.Dir); er == nil && len(entries) == 0 {
		err = multierr.Append(err, os.Remove(a.Dir))
	}
	return err
}

// CopyAssets copies files into outDir/dirName. Existing files are never
// overwritten: a file with the same name and content is reused, otherwise
// the name gets numeric suffix. Files which cannot be copied are logged and
// left out of the mapping. On cancellation partial result is returned with
// the error.
func CopyAssets(ctx context.Context, files []string, outDir, dirName string, progress Progress, log *zap.Logger) (*AssetCopy, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dst := filepath.Join(outDir, dirName)
	res := &AssetCopy{Dir: dst, Mapping: make(map[string]string, len(files))}
	if len(files) == 0 {
		return res, nil
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create assets directory: %w", err)
	}

	used := make(map[string]bool, len(files))
	for i, src := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		name, reuse := assetTarget(src, dst, used)
		used[name] = true
		target := filepath.Join(dst, name)

		switch {
		case reuse:
			log.Debug("Identical asset already present", zap.String("from", src), zap.String("name", name))
			res.Mapping[src] = path.Join(dirName, name)
		default:
			if err := copyFile(src, target); err != nil {
				log.Warn("Unable to copy asset", zap.String("from", src), zap.Error(err))
				break
			}
			res.Created = append(res.Created, target)
			res.Mapping[src] = path.Join(dirName, name)
		}
		if progress != nil {
			progress(i+1, len(files), src)
		}
	}
	log.Debug("Assets copied", zap.String("to", dst), zap.Int("files", len(res.Mapping)), zap.Int("created", len(res.Created)))
	return res, nil
}

// assetTarget picks name for src in dst: first candidate not taken in this
// run which is either free on disk or holds identical content.
func assetTarget(src, dst string, used map[string]bool) (string, bool) {
	name := AssetName(src)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		if !used[name] {
			switch existing(src, filepath.Join(dst, name)) {
			case targetFree:
				return name, false
			case targetSame:
				return name, true
			}
		}
		name = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
}

type targetState int

const (
	targetFree targetState = iota
	targetSame
	targetTaken
)

func existing(src, dst string) targetState {
	fi, err := os.Stat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return targetFree
	}
	if err != nil || !fi.Mode().IsRegular() {
		return targetTaken
	}
	si, err := os.Stat(src)
	if err != nil || si.Size() != fi.Size() {
		return targetTaken
	}
	a, err := os.ReadFile(src)
	if err != nil {
		return targetTaken
	}
	b, err := os.ReadFile(dst)
	if err != nil || !bytes.Equal(a, b) {
		return targetTaken
	}
	return targetSame
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return multierr.Append(err, os.Remove(dst))
	}
	return out.Close()
}
