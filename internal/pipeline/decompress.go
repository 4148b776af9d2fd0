package pipeline

import (
	"compress/gzip"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
)

// DecompressReader wraps an upstream response body so the pipeline always
// operates on plain bytes, regardless of what Content-Encoding the
// provider chose. Unrecognized or absent encodings pass the body through
// unchanged.
func DecompressReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// StripCompressionHeaders drops the Content-Encoding/Content-Length headers
// from a set of upstream response headers before copying the rest to the
// client, since the body forwarded to the client is already decompressed
// and of a different length.
func StripCompressionHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		if k == "Content-Encoding" || k == "Content-Length" {
			continue
		}
		out[k] = v
	}
	return out
}
