package strategy

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/use-agent/ingestor/models"
	"github.com/use-agent/ingestor/page"
)

const (
	youtubeDomain    = "youtube.com"
	youtubeWatchPath = "/watch"
	youtubeSuffix    = " - YouTube"
)

// YouTube hands watch pages to the backend, which resolves transcripts and
// metadata from the video id. The page DOM is never read.
type YouTube struct{}

func NewYouTube() *YouTube { return &YouTube{} }

func (y *YouTube) Name() string { return "youtube" }

func (y *YouTube) Matches(u *url.URL) bool {
	return page.HostMatches(page.Host(u), youtubeDomain) &&
		u.Path == youtubeWatchPath &&
		u.Query().Get("v") != ""
}

func (y *YouTube) Extract(ctx context.Context, sc *Context) (*models.Record, error) {
	videoID := sc.URL.Query().Get("v")
	if videoID == "" {
		return nil, models.NewExtractError(models.ErrCodeMissingIdentifier, "watch page without video id", nil)
	}

	title, err := sc.Page.Title(ctx)
	if err != nil {
		slog.Debug("youtube: document title unavailable", "video_id", videoID, "error", err)
	}
	title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(title), youtubeSuffix))
	if title == "" || title == "YouTube" {
		title = "YouTube video " + videoID
	}

	rec := models.NewRecord(models.TypeYouTubeVideo, title, models.ServerBodyPlaceholder)
	rec.Metadata["video_id"] = videoID
	rec.Metadata["note"] = "Server-side processing requested"
	return rec, nil
}
