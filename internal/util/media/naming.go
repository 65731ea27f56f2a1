// Package media derives output file names from source metadata.
package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"clipforge/internal/model"
	"clipforge/internal/util"
)

// SourceName picks a human name for the source: title, then id, then the
// input file stem.
func SourceName(dv model.DownloadedVideo, sourcePath string) string {
	for _, s := range []string{dv.Title, dv.ID} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	if sourcePath != "" && !util.IsRemote(sourcePath) {
		base := filepath.Base(sourcePath)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return "clip"
}

// OutputBasename builds a safe, informative base filename (without
// extension) from the source name, the output box and the rate mode.
func OutputBasename(dv model.DownloadedVideo, sourcePath string, width, height int, enc model.EncodeSettings) string {
	parts := []string{util.SanitizeFilename(SourceName(dv, sourcePath))}
	if dv.Uploader != "" {
		parts = append([]string{util.SanitizeFilename(dv.Uploader)}, parts...)
	}
	parts = append(parts, fmt.Sprintf("%dx%d", width, height))
	if enc.MaxSizeMB > 0 {
		parts = append(parts, fmt.Sprintf("%dMB", enc.MaxSizeMB))
	} else {
		parts = append(parts, fmt.Sprintf("CRF%d", enc.CRF))
	}
	return strings.Join(parts, "_")
}
