package export

import (
	"maps"
	"slices"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"blockdoc/block"
	"blockdoc/utils/paths"
)

// MediaUpdateReport classifies media values of a rewritten document.
type MediaUpdateReport struct {
	// Found values were remapped (they hold new references).
	Found []string `json:"found"`
	// Missing values are local paths with no entry in the mapping.
	Missing []string `json:"missing"`
}

// Updater isolates export from the edited document and rewrites media
// references of the working copy. It never fails, misses are reported.
type Updater struct {
	log *zap.Logger
}

func NewUpdater(log *zap.Logger) *Updater {
	if log == nil {
		log = zap.NewNop()
	}
	return &Updater{log: log}
}

// CopyForExport returns structurally independent deep copy of the document.
func (u *Updater) CopyForExport(doc block.Document) block.Document {
	return doc.Clone()
}

// ApplyMediaMapping rewrites every media reference found in mapping, keys
// are normalized paths. Returns number of changed references. Values which
// are already URIs are skipped, so applying the same mapping twice is a
// no-op.
func (u *Updater) ApplyMediaMapping(doc block.Document, mapping map[string]string) int {
	changed := 0
	for b := range doc.All() {
		before := b.MediaValues()
		b.UpdateMediaReferences(mapping)
		after := b.MediaValues()
		for i := range min(len(before), len(after)) {
			if before[i] != after[i] {
				changed++
			}
		}
	}
	u.log.Debug("Media mapping applied", zap.Int("mapping", len(mapping)), zap.Int("changed", changed))
	return changed
}

// ValidateMediaUpdates re-reads all media values after rewrite. Values
// produced by the mapping count as found, remaining local paths as missing.
// External URIs not produced by the mapping are ignored.
func (u *Updater) ValidateMediaUpdates(doc block.Document, mapping map[string]string) MediaUpdateReport {
	produced := make(map[string]bool, len(mapping))
	for v := range maps.Values(mapping) {
		produced[v] = true
	}

	found := make(map[string]bool)
	missing := make(map[string]bool)
	for b := range doc.All() {
		for _, v := range b.MediaValues() {
			switch {
			case produced[v]:
				found[v] = true
			case paths.IsURI(v):
			default:
				missing[paths.Normalize(v)] = true
			}
		}
	}

	rpt := MediaUpdateReport{
		Found:   sortedKeys(found),
		Missing: sortedKeys(missing),
	}
	if len(rpt.Missing) > 0 {
		u.log.Warn("Some media references were not rewritten", zap.Strings("missing", rpt.Missing))
	}
	return rpt
}

func sortedKeys(m map[string]bool) []string {
	out := slices.Collect(maps.Keys(m))
	slices.SortFunc(out, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case natural.Less(a, b):
			return -1
		default:
			return 1
		}
	})
	return out
}
