package block

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"blockdoc/utils/paths"
)

// FieldKind tells property editors (and Update) how to treat a content value.
type FieldKind string

const (
	KindText       FieldKind = "text"
	KindMultiline  FieldKind = "multiline"
	KindMarkdown   FieldKind = "markdown"
	KindChoice     FieldKind = "choice"
	KindPath       FieldKind = "path"
	KindBool       FieldKind = "bool"
	KindInt        FieldKind = "int"
	KindStringList FieldKind = "string_list"
	KindTable      FieldKind = "table"
	KindMediaItems FieldKind = "media_items"
)

// Schema maps content field names to their kinds.
type Schema map[string]FieldKind

var (
	ErrInvalidValue       = errors.New("invalid field value")
	ErrBase64InPathField  = errors.New("path field does not accept base64 data")
	ErrUnknownType        = errors.New("unknown block type")
	ErrLastTab            = errors.New("cannot remove the last tab")
	ErrTabExists          = errors.New("tab already exists")
	ErrTabNotFound        = errors.New("tab not found")
	ErrBlockNotFound      = errors.New("block not found")
	ErrAlreadyOwned       = errors.New("block already has an owner")
	ErrInvalidBlockRecord = errors.New("invalid block record")
)

// MediaItem is one entry of a media list field.
type MediaItem struct {
	Type    string `json:"type" yaml:"type"`
	Source  string `json:"source" yaml:"source"`
	Caption string `json:"caption" yaml:"caption"`
	AltText string `json:"alt_text" yaml:"alt_text"`
}

// coerce converts incoming value (possibly produced by json or yaml
// decoding) into the canonical Go type for kind.
func coerce(kind FieldKind, value any) (any, error) {
	switch kind {
	case KindText, KindMultiline, KindMarkdown, KindChoice:
		return asString(value)
	case KindPath:
		s, err := asString(value)
		if err != nil {
			return nil, err
		}
		return cleanPath(s)
	case KindBool:
		return asBool(value)
	case KindInt:
		return asInt(value)
	case KindStringList:
		return asStrings(value)
	case KindTable:
		return asTable(value)
	case KindMediaItems:
		return asMediaItems(value)
	default:
		return nil, fmt.Errorf("%w: unsupported kind %q", ErrInvalidValue, kind)
	}
}

func cleanPath(s string) (string, error) {
	if paths.LooksLikeBase64(s) {
		return "", ErrBase64InPathField
	}
	return paths.Clean(s), nil
}

func asString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int64, float64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("%w: expected string, got %T", ErrInvalidValue, value)
	}
}

func asBool(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if v == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: expected bool, got %T", ErrInvalidValue, value)
	}
}

func asInt(value any) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: expected integer, got %T", ErrInvalidValue, value)
	}
}

func asStrings(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, err := asString(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected list of strings, got %T", ErrInvalidValue, value)
	}
}

func asTable(value any) ([][]string, error) {
	switch v := value.(type) {
	case nil:
		return [][]string{}, nil
	case [][]string:
		out := make([][]string, len(v))
		for i := range v {
			out[i] = append([]string{}, v[i]...)
		}
		return out, nil
	case []any:
		out := make([][]string, 0, len(v))
		for _, row := range v {
			r, err := asStrings(row)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected table, got %T", ErrInvalidValue, value)
	}
}

func asMediaItems(value any) ([]MediaItem, error) {
	var raw []any
	switch v := value.(type) {
	case nil:
		return []MediaItem{}, nil
	case []MediaItem:
		out := make([]MediaItem, 0, len(v))
		for _, it := range v {
			src, err := cleanPath(it.Source)
			if err != nil {
				return nil, err
			}
			it.Source = src
			if it.Type == "" {
				it.Type = guessMediaType(src)
			}
			out = append(out, it)
		}
		return out, nil
	case []map[string]any:
		for _, m := range v {
			raw = append(raw, m)
		}
	case []any:
		raw = v
	default:
		return nil, fmt.Errorf("%w: expected media items, got %T", ErrInvalidValue, value)
	}

	out := make([]MediaItem, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: media item must be a record, got %T", ErrInvalidValue, e)
		}
		var it MediaItem
		var err error
		if it.Type, err = asString(m["type"]); err != nil {
			return nil, err
		}
		src, err := asString(m["source"])
		if err != nil {
			return nil, err
		}
		if it.Source, err = cleanPath(src); err != nil {
			return nil, err
		}
		if it.Caption, err = asString(m["caption"]); err != nil {
			return nil, err
		}
		if it.AltText, err = asString(m["alt_text"]); err != nil {
			return nil, err
		}
		if it.Type == "" {
			it.Type = guessMediaType(it.Source)
		}
		out = append(out, it)
	}
	return out, nil
}

func guessMediaType(src string) string {
	s := strings.ToLower(src)
	for _, ext := range [...]string{".mp4", ".webm", ".ogv", ".mov"} {
		if strings.HasSuffix(s, ext) {
			return "video"
		}
	}
	for _, ext := range [...]string{".mp3", ".wav", ".m4a", ".oga"} {
		if strings.HasSuffix(s, ext) {
			return "audio"
		}
	}
	return "image"
}

// cloneValue deep copies content values. Scalars are immutable and returned
// as is.
func cloneValue(value any) any {
	switch v := value.(type) {
	case []string:
		return append([]string{}, v...)
	case [][]string:
		out := make([][]string, len(v))
		for i := range v {
			out[i] = append([]string{}, v[i]...)
		}
		return out
	case []MediaItem:
		return append([]MediaItem{}, v...)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]string:
		return maps.Clone(v)
	default:
		return v
	}
}

func cloneContent(content map[string]any) map[string]any {
	out := make(map[string]any, len(content))
	for k, v := range content {
		out[k] = cloneValue(v)
	}
	return out
}
