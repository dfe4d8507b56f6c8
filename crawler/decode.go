package crawler

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// decodeBody undoes a brotli Content-Encoding. gzip is already handled by
// colly.
func decodeBody(encoding string, body []byte) ([]byte, error) {
	if !strings.EqualFold(strings.TrimSpace(encoding), "br") {
		return body, nil
	}
	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
	if err != nil {
		return nil, fmt.Errorf("crawler: brotli decode: %w", err)
	}
	return out, nil
}
