package render

import (
	"context"
)

// Hardware encoders in preference order, with the software encoder last. The
// probe runs a tiny test encode per candidate once per process lifetime; the
// winner is cached, never re-probed per clip.
var encoderPreference = []string{"h264_nvenc", "h264_qsv", "h264_vaapi"}

const softwareEncoder = "libx264"

func (r *Renderer) selectEncoder(ctx context.Context) string {
	if r.forcedEncoder != "" {
		return r.forcedEncoder
	}
	r.encoderOnce.Do(func() {
		r.encoder = r.probeEncoders(ctx)
	})
	return r.encoder
}

// probeEncoders test-encodes a synthetic frame with each hardware encoder in
// preference order. Listing alone is not enough: ffmpeg reports compiled-in
// encoders even when the GPU they need is absent.
func (r *Renderer) probeEncoders(ctx context.Context) string {
	for _, name := range encoderPreference {
		args := []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "lavfi", "-i", "color=c=black:s=256x256:d=0.1",
			"-c:v", name,
			"-f", "null", "-",
		}
		if err := r.exec.Run(ctx, r.ffmpegBin, args, nil); err == nil {
			r.logger.Info("selected hardware video encoder", "encoder", name)
			return name
		}
	}
	r.logger.Info("no hardware encoder available; using software encoder",
		"encoder", softwareEncoder)
	return softwareEncoder
}
