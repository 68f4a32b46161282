package provision

import (
	"context"

	"github.com/oshokin/nonodo-launcher/internal/download"
	"github.com/oshokin/nonodo-launcher/internal/logger"
)

const (
	// progressStepPercent is the percentage between two progress records.
	progressStepPercent = 10
	// progressStepBytes is the byte interval between records when the size is unknown.
	progressStepBytes = 1 << 20
)

// progressLogger returns a callback that logs download progress at debug level
// without flooding the output.
func progressLogger(ctx context.Context) func(download.Progress) {
	var next float64

	return func(p download.Progress) {
		if p.Total < 0 {
			if float64(p.Received) >= next {
				logger.DebugKV(ctx, "Download progress", "url", p.URL, "bytes", p.Received)
				next = float64(p.Received) + progressStepBytes
			}

			return
		}

		if percent := p.Percent(); percent >= next {
			logger.DebugKV(ctx, "Download progress",
				"url", p.URL, "bytes", p.Received, "total", p.Total, "percent", int(percent))
			next = percent + progressStepPercent
		}
	}
}
