// Package common holds enums shared by configuration, commands and the export
// pipeline. Keeping them here lets config stay free of pipeline imports.
package common

import (
	"fmt"
	"strings"
)

// Specification of how media references are materialized on export.
// ENUM(embed, assets, link)
type MediaStrategy int

const (
	// MediaStrategyEmbed inlines every valid file as data: URL.
	MediaStrategyEmbed MediaStrategy = iota
	// MediaStrategyAssets copies files next to the output and links them
	// relatively.
	MediaStrategyAssets
	// MediaStrategyLink leaves references as local file URIs, used by preview.
	MediaStrategyLink
)

var mediaStrategyNames = []string{"embed", "assets", "link"}

// MediaStrategyNames returns list of possible string values of MediaStrategy.
func MediaStrategyNames() []string {
	return append([]string(nil), mediaStrategyNames...)
}

func (m MediaStrategy) String() string {
	if m < 0 || int(m) >= len(mediaStrategyNames) {
		return fmt.Sprintf("MediaStrategy(%d)", int(m))
	}
	return mediaStrategyNames[m]
}

// IsValid reports whether m is one of the declared values.
func (m MediaStrategy) IsValid() bool {
	return m >= 0 && int(m) < len(mediaStrategyNames)
}

// ParseMediaStrategy converts case insensitive name into MediaStrategy.
func ParseMediaStrategy(name string) (MediaStrategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, v := range mediaStrategyNames {
		if v == n {
			return MediaStrategy(i), nil
		}
	}
	return 0, fmt.Errorf("%s is not a valid MediaStrategy, try [%s]", name, strings.Join(mediaStrategyNames, ", "))
}

func (m MediaStrategy) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("%d is not a valid MediaStrategy", int(m))
	}
	return []byte(m.String()), nil
}

func (m *MediaStrategy) UnmarshalText(text []byte) error {
	v, err := ParseMediaStrategy(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
