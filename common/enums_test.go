package common

import (
	"slices"
	"testing"

	yaml "gopkg.in/yaml.v3"
)

func TestParseMediaStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    MediaStrategy
		wantErr bool
	}{
		{"embed", MediaStrategyEmbed, false},
		{" Assets ", MediaStrategyAssets, false},
		{"LINK", MediaStrategyLink, false},
		{"inline", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMediaStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMediaStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMediaStrategy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMediaStrategy_YAML(t *testing.T) {
	var v struct {
		Media MediaStrategy `yaml:"media"`
	}
	if err := yaml.Unmarshal([]byte("media: assets\n"), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.Media != MediaStrategyAssets {
		t.Errorf("Media = %v, want assets", v.Media)
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "media: assets\n" {
		t.Errorf("Marshal() = %q", out)
	}
	if err := yaml.Unmarshal([]byte("media: bogus\n"), &v); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestMediaStrategyNames(t *testing.T) {
	if got := MediaStrategyNames(); !slices.Equal(got, []string{"embed", "assets", "link"}) {
		t.Errorf("MediaStrategyNames() = %v", got)
	}
	if s := MediaStrategy(9).String(); s != "MediaStrategy(9)" {
		t.Errorf("String() = %q", s)
	}
}
