package export

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"blockdoc/block"
	"blockdoc/config"
)

const outputExt = ".html"

// buildOutputPath returns output file path for exported project. Default
// name is project file name with html extension, user-defined template may
// produce name with subdirectories. Every path segment is cleaned up and
// transliterated.
func buildOutputPath(doc block.Document, src, dst string, cfg *config.ExportConfig, opts Options, log *zap.Logger) string {
	defaultFile := config.CleanFileName(slug.Make(strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)))) + outputExt

	if cfg.OutputNameTemplate == "" {
		return filepath.Join(dst, defaultFile)
	}

	values := buildValues(config.OutputNameTemplateFieldName, doc, opts.Title, src, opts.Media)
	expandedName, err := expandTemplate(config.OutputNameTemplateFieldName, cfg.OutputNameTemplate, values)
	if err != nil {
		log.Warn("Unable to prepare output filename", zap.Error(err))
		return filepath.Join(dst, defaultFile)
	}
	expandedName = filepath.FromSlash(strings.TrimSpace(expandedName))
	if expandedName == "" {
		return filepath.Join(dst, defaultFile)
	}
	return assemblePathWithSubdirs(dst, expandedName)
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path.
func assemblePathWithSubdirs(outDir, expandedName string) string {
	pathSegments := splitAndCleanPath(expandedName)
	if len(pathSegments) == 0 {
		return filepath.Join(outDir, "document"+outputExt)
	}

	fileName := cleanPathSegment(strings.TrimSuffix(pathSegments[len(pathSegments)-1], outputExt)) + outputExt
	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)
	for _, segment := range pathSegments[:len(pathSegments)-1] {
		if segment == ".." || segment == "." {
			continue
		}
		dirParts = append(dirParts, cleanPathSegment(segment))
	}
	dirParts = append(dirParts, fileName)
	return filepath.Join(dirParts...)
}

func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		segments = slices.Insert(segments, 0, tail)
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
	}
	return segments
}

func cleanPathSegment(segment string) string {
	return config.CleanFileName(slug.Make(segment))
}
