package media

import (
	"testing"

	"clipforge/internal/model"
)

func TestOutputBasename(t *testing.T) {
	tests := []struct {
		name   string
		dv     model.DownloadedVideo
		source string
		enc    model.EncodeSettings
		want   string
	}{
		{
			name:   "local file, crf",
			source: "/videos/My Holiday.mov",
			enc:    model.DefaultEncodeSettings(),
			want:   "My_Holiday_1080x1920_CRF23",
		},
		{
			name:   "remote with metadata, size mode",
			dv:     model.DownloadedVideo{Title: "Best: Moments!", Uploader: "chan"},
			source: "https://youtu.be/abc",
			enc:    model.EncodeSettings{CRF: 23, MaxSizeMB: 16},
			want:   "chan_Best_Moments_1080x1920_16MB",
		},
		{
			name:   "remote without metadata",
			source: "https://example.com/v",
			enc:    model.DefaultEncodeSettings(),
			want:   "clip_1080x1920_CRF23",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OutputBasename(tt.dv, tt.source, 1080, 1920, tt.enc)
			if got != tt.want {
				t.Errorf("OutputBasename() = %q, want %q", got, tt.want)
			}
		})
	}
}
