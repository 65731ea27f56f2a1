package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// mediaRank orders the containers yt-dlp may leave behind; lower wins.
// Anything not listed (.part, .ytdl, thumbnails, sidecars) is ignored.
var mediaRank = map[string]int{
	".mp4":  0,
	".mkv":  1,
	".webm": 2,
	".mov":  3,
	".m4v":  4,
	".avi":  5,
	".flv":  6,
}

// SelectDownloadedFile picks the media file yt-dlp produced for id. Files
// named after id beat strays; ties go to the better container, then name.
func SelectDownloadedFile(workdir, id string) (string, error) {
	entries, err := os.ReadDir(workdir)
	if err != nil {
		return "", err
	}

	type candidate struct {
		name    string
		ownedBy bool
		rank    int
	}
	var found []candidate
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ext := filepath.Ext(e.Name())
		rank, ok := mediaRank[strings.ToLower(ext)]
		if !ok {
			continue
		}
		found = append(found, candidate{
			name:    e.Name(),
			ownedBy: id != "" && strings.TrimSuffix(e.Name(), ext) == id,
			rank:    rank,
		})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no media file in %s", workdir)
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.ownedBy != b.ownedBy {
			return a.ownedBy
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		return a.name < b.name
	})
	return filepath.Join(workdir, found[0].name), nil
}
