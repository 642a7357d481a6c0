package export

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"blockdoc/block"
	"blockdoc/common"
	"blockdoc/config"
)

func TestBuildOutputPath(t *testing.T) {
	header := block.NewHeader()
	mustUpdate(t, header, "author", "Jane Doe")
	mustUpdate(t, header, "date", "2024-05-01")
	doc := block.Document{header}
	dst := filepath.FromSlash("/out")

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"default", "", "/out/my-project.html"},
		{"flat", `{{ .Title }}`, "/out/quarterly-report.html"},
		{"subdirs", `{{ .Author }}/{{ .Date }}/{{ .SourceFile | upper }}`, "/out/jane-doe/2024-05-01/my-project.html"},
		{"extension kept once", `{{ .Title }}.html`, "/out/quarterly-report.html"},
		{"escape attempt", `../{{ .Media }}`, "/out/assets.html"},
		{"broken template", `{{ .Nope `, "/out/my-project.html"},
		{"unknown field", `{{ .Nope }}`, "/out/my-project.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.ExportConfig{OutputNameTemplate: tt.template}
			opts := Options{Title: "Quarterly Report", Media: common.MediaStrategyAssets}
			got := buildOutputPath(doc, "/src/My Project.json", dst, cfg, opts, zaptest.NewLogger(t))
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("buildOutputPath() = %s, want %s", got, filepath.FromSlash(tt.want))
			}
		})
	}
}

func TestBuildValues(t *testing.T) {
	header := block.NewHeader()
	mustUpdate(t, header, "subtitle", "Sub")
	doc := block.Document{header, block.NewTabs("One", "Two")}
	v := buildValues(config.OutputNameTemplateFieldName, doc, "T", "/x/file.yaml", common.MediaStrategyEmbed)
	if v.Subtitle != "Sub" || v.SourceFile != "file" || v.Media != "embed" || len(v.Tabs) != 2 || v.Date == "" {
		t.Errorf("buildValues() = %+v", v)
	}
}
