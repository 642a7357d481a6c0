package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"blockdoc/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	ExportConfig struct {
		Title          string               `yaml:"title"`
		ThemePath      string               `yaml:"theme_path" sanitize:"assure_file_access"`
		Media          common.MediaStrategy `yaml:"media"`
		EmbedTheme     bool                 `yaml:"embed_theme"`
		EmbedCSSAssets bool                 `yaml:"embed_css_assets"`
		// when embedding is infeasible export is retried with Fallback strategy
		Fallback      common.MediaStrategy `yaml:"fallback"`
		AssetsDirName string               `yaml:"assets_dir_name" validate:"required,excludesall=/\\"`
		// do not expand, used as text/template at export time
		OutputNameTemplate string `yaml:"output_name_template"`
	}

	MediaConfig struct {
		MaxFileSize   int64 `yaml:"max_file_size" validate:"gt=0"`
		WarnFileSize  int64 `yaml:"warn_file_size" validate:"gt=0,ltefield=MaxFileSize"`
		WarnTotalSize int64 `yaml:"warn_total_size" validate:"gt=0"`
		MaxTotalSize  int64 `yaml:"max_total_size" validate:"gt=0,gtefield=WarnTotalSize"`
		// 0 means number of CPUs
		Workers int `yaml:"workers" validate:"gte=0"`
		// raster images wider than this are downscaled before embedding, 0 disables
		MaxImageWidth int `yaml:"max_image_width" validate:"gte=0"`
	}

	PreviewConfig struct {
		Host         string        `yaml:"host" validate:"required,hostname|ip"`
		HTTPPort     int           `yaml:"http_port" validate:"min=1,max=65535"`
		PushPort     int           `yaml:"push_port" validate:"min=1,max=65535,nefield=HTTPPort"`
		PortAttempts int           `yaml:"port_attempts" validate:"min=1,max=1000"`
		AssetsDir    string        `yaml:"assets_dir" sanitize:"path_clean"`
		Debounce     time.Duration `yaml:"debounce" validate:"gte=0"`
		PingInterval time.Duration `yaml:"ping_interval" validate:"gt=0"`
		Watch        bool          `yaml:"watch"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Export    ExportConfig   `yaml:"export"`
		Media     MediaConfig    `yaml:"media"`
		Preview   PreviewConfig  `yaml:"preview"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// only fields we defined are allowed, so no yaml.Unmarshal here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("configuration sanitization failed: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		if !cfg.Export.Media.IsValid() || !cfg.Export.Fallback.IsValid() {
			return nil, fmt.Errorf("invalid media strategy: %d/%d", cfg.Export.Media, cfg.Export.Fallback)
		}
		if cfg.Export.Fallback == common.MediaStrategyEmbed {
			return nil, fmt.Errorf("export fallback cannot be %q", cfg.Export.Fallback)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
