package export

import (
	"sync"

	"golang.design/x/clipboard"
)

var clipboardInit struct {
	once sync.Once
	err  error
}

// CopyToClipboard writes the artwork as a clipboard image object. It is an
// independent operation, not a save fallback, and degrades to a failed result
// on platforms without clipboard support.
func (e *Exporter) CopyToClipboard(data []byte) ClipboardResult {
	clipboardInit.once.Do(func() {
		clipboardInit.err = clipboard.Init()
	})
	if clipboardInit.err != nil {
		return ClipboardResult{Message: "Clipboard is not available on this system."}
	}
	if len(data) == 0 {
		return ClipboardResult{Message: "Nothing to copy."}
	}

	clipboard.Write(clipboard.FmtImage, data)
	return ClipboardResult{Success: true}
}
