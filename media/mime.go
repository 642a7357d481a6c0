package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Kind is broad category of supported media.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindFont  Kind = "font"
)

type extInfo struct {
	mime string
	kind Kind
}

// supported extensions, MIME types here win over anything sniffed
var extTable = map[string]extInfo{
	".png":  {"image/png", KindImage},
	".jpg":  {"image/jpeg", KindImage},
	".jpeg": {"image/jpeg", KindImage},
	".gif":  {"image/gif", KindImage},
	".bmp":  {"image/bmp", KindImage},
	".webp": {"image/webp", KindImage},
	".svg":  {"image/svg+xml", KindImage},
	".ico":  {"image/x-icon", KindImage},
	".tif":  {"image/tiff", KindImage},
	".tiff": {"image/tiff", KindImage},

	".mp4":  {"video/mp4", KindVideo},
	".webm": {"video/webm", KindVideo},
	".ogv":  {"video/ogg", KindVideo},
	".mov":  {"video/quicktime", KindVideo},

	".mp3": {"audio/mpeg", KindAudio},
	".wav": {"audio/wav", KindAudio},
	".ogg": {"audio/ogg", KindAudio},
	".oga": {"audio/ogg", KindAudio},
	".m4a": {"audio/mp4", KindAudio},

	".woff":  {"font/woff", KindFont},
	".woff2": {"font/woff2", KindFont},
	".ttf":   {"font/ttf", KindFont},
	".otf":   {"font/otf", KindFont},
	".eot":   {"application/vnd.ms-fontobject", KindFont},
}

// IsSupported reports whether file extension is one we embed or copy.
func IsSupported(path string) bool {
	_, ok := extTable[strings.ToLower(filepath.Ext(path))]
	return ok
}

// KindOf returns category for supported extension, empty otherwise.
func KindOf(path string) Kind {
	return extTable[strings.ToLower(filepath.Ext(path))].kind
}

// DetectMIME returns MIME type for the file: extension table first, then
// content sniffing on the head bytes, then OS level guess by extension.
func DetectMIME(path string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if info, ok := extTable[ext]; ok {
		return info.mime
	}
	if len(head) > 0 {
		if t, err := filetype.Match(head); err == nil && t != filetype.Unknown {
			return t.MIME.Value
		}
	}
	if m := mime.TypeByExtension(ext); m != "" {
		// drop parameters like charset
		if i := strings.IndexByte(m, ';'); i > 0 {
			m = strings.TrimSpace(m[:i])
		}
		return m
	}
	return "application/octet-stream"
}

// ExtForMIME returns preferred file extension (with dot) for MIME type.
func ExtForMIME(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	case "image/webp":
		return ".webp"
	case "font/woff", "application/font-woff":
		return ".woff"
	case "font/woff2", "application/font-woff2":
		return ".woff2"
	case "font/ttf", "application/x-font-ttf", "application/font-sfnt":
		return ".ttf"
	case "font/otf", "application/x-font-otf":
		return ".otf"
	case "video/mp4":
		return ".mp4"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// IsFontMIME returns true if the MIME type indicates a font resource.
func IsFontMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "font/") ||
		strings.HasPrefix(mimeType, "application/font-") ||
		strings.HasPrefix(mimeType, "application/x-font-") ||
		mimeType == "application/vnd.ms-fontobject"
}

var errBadContent = errors.New("content does not match file type")

// checkContent performs sanity check of loaded data against declared MIME
// type. Only formats which are cheap to recognize are checked.
func checkContent(mimeType string, data []byte) error {
	switch mimeType {
	case "font/woff":
		if !filetype.Is(data, "woff") {
			return errBadContent
		}
	case "font/woff2":
		if !filetype.Is(data, "woff2") {
			return errBadContent
		}
	case "font/ttf":
		if !filetype.Is(data, "ttf") {
			return errBadContent
		}
	case "font/otf":
		if !filetype.Is(data, "otf") {
			return errBadContent
		}
	case "image/svg+xml":
		return checkSVG(data)
	}
	return nil
}

func checkSVG(data []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return fmt.Errorf("svg is not well formed: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return fmt.Errorf("%w: svg root element is missing", errBadContent)
	}
	return nil
}

// dimensions decodes raster image header, zeroes when not an image.
func dimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
