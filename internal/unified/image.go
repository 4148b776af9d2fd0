package unified

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DataURL renders an ImageSource as a data: URL when it carries base64
// bytes, or returns the raw URL unchanged otherwise (§4.1 image helpers).
func (s ImageSource) DataURL() string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf("data:%s;base64,%s", s.MediaType, s.Data)
}

// ParseDataURL splits a data: URL into media type and base64 payload. If the
// input is not a data: URL it is returned as a plain URL source.
func ParseDataURL(raw string) ImageSource {
	const prefix = "data:"
	if !strings.HasPrefix(raw, prefix) {
		return ImageSource{URL: raw}
	}

	rest := raw[len(prefix):]
	comma := strings.IndexByte(rest, ',')
	if comma == -1 {
		return ImageSource{URL: raw}
	}

	meta, payload := rest[:comma], rest[comma+1:]
	mediaType := strings.TrimSuffix(meta, ";base64")
	if !strings.HasSuffix(meta, ";base64") {
		// Not base64-encoded; treat the whole thing as an opaque URL.
		return ImageSource{URL: raw}
	}

	return ImageSource{MediaType: mediaType, Data: payload}
}

// EncodeBase64 is a small convenience wrapper used by adapters that must
// embed raw bytes (e.g. a fetched image) into an ImageSource.
func EncodeBase64(mediaType string, raw []byte) ImageSource {
	return ImageSource{MediaType: mediaType, Data: base64.StdEncoding.EncodeToString(raw)}
}
