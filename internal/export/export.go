// Package export turns a generated artwork into a shareable link, a local
// file or a clipboard image. Nothing here returns an error to the caller:
// outcomes are reported as results suitable for user display.
package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	MethodShare    = "share"
	MethodDownload = "download"
)

// SaveResult reports how (and whether) an artwork left the client.
type SaveResult struct {
	Success   bool
	Method    string
	Location  string
	Message   string
	Cancelled bool
}

// ClipboardResult reports a clipboard write.
type ClipboardResult struct {
	Success bool
	Message string
}

// ShareBackend publishes an image and returns a public URL for it.
type ShareBackend interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

type Exporter struct {
	share  ShareBackend
	outDir string
	log    *slog.Logger
}

// NewExporter builds an exporter. A nil share backend disables the share
// path; saves then go straight to download.
func NewExporter(share ShareBackend, outDir string, log *slog.Logger) *Exporter {
	return &Exporter{
		share:  share,
		outDir: outDir,
		log:    log,
	}
}

// DecodeImage decodes a base64 image payload into raw bytes, tolerating an
// optional data-URL prefix. Callers decode once and pass bytes around.
func DecodeImage(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:") {
		idx := strings.Index(encoded, "base64,")
		if idx < 0 {
			return nil, fmt.Errorf("unsupported data url")
		}
		encoded = encoded[idx+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return data, nil
}

// SaveToDevice publishes the artwork via the share backend when one is
// configured, falling back to a local download on any share failure except
// user cancellation. The written bytes are the input bytes, untouched.
func (e *Exporter) SaveToDevice(ctx context.Context, data []byte, filename string) SaveResult {
	if e.share != nil {
		url, err := e.share.Upload(ctx, data, detectImageContentType(data))
		if err == nil {
			return SaveResult{Success: true, Method: MethodShare, Location: url}
		}
		if errors.Is(err, context.Canceled) {
			// The user backed out; not an error and no fallback.
			return SaveResult{Method: MethodShare, Cancelled: true}
		}
		e.log.Warn("share failed, falling back to download", "err", err)
	}

	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return SaveResult{Method: MethodDownload, Message: "Failed to save image: " + err.Error()}
	}
	path := filepath.Join(e.outDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return SaveResult{Method: MethodDownload, Message: "Failed to save image: " + err.Error()}
	}
	return SaveResult{Success: true, Method: MethodDownload, Location: path}
}

func detectImageContentType(data []byte) string {
	switch mime := http.DetectContentType(data); mime {
	case "image/png", "image/jpeg", "image/webp":
		return mime
	default:
		return "image/png"
	}
}
