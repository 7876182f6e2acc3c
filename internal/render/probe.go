package render

import (
	"context"
	"strconv"
	"strings"

	"clipmill/internal/services"
)

// probeDuration returns the container duration of a media file in seconds.
func (r *Renderer) probeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	var lines []string
	err := r.exec.Run(ctx, r.ffprobeBin, args, func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	})
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "render", "probe duration", "ffprobe failed", err)
	}
	if len(lines) == 0 {
		return 0, services.Wrap(services.ErrExternalTool, "render", "probe duration", "ffprobe reported no duration", nil)
	}
	duration, err := strconv.ParseFloat(lines[len(lines)-1], 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "render", "probe duration", "unparseable ffprobe duration", err)
	}
	return duration, nil
}
