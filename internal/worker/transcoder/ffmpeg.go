package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Transcoder runs an external transcoding operation against a local
// input/output file pair. It blocks until the output file exists or
// the operation fails.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// Options holds the fixed encoding parameters for ffmpeg. OverlayText
// burns a caption into the video using the font at FontPath. Timeout
// bounds the external call; zero means no limit.
type Options struct {
	FFmpegPath  string
	VideoCodec  string
	CRF         int
	OverlayText string
	FontPath    string
	Timeout     time.Duration
}

// FFmpeg invokes the ffmpeg binary
type FFmpeg struct {
	opts   Options
	logger *slog.Logger
}

// NewFFmpeg creates an ffmpeg-backed transcoder
func NewFFmpeg(opts Options, logger *slog.Logger) *FFmpeg {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.VideoCodec == "" {
		opts.VideoCodec = "libx264"
	}
	if opts.CRF <= 0 {
		opts.CRF = 28
	}

	return &FFmpeg{opts: opts, logger: logger}
}

// Transcode compresses inputPath into outputPath. A non-zero exit
// fails with ffmpeg's captured stderr as the error detail.
func (f *FFmpeg) Transcode(ctx context.Context, inputPath, outputPath string) error {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	args := f.buildArgs(inputPath, outputPath)

	f.logger.Info("Starting ffmpeg",
		slog.String("input", inputPath),
		slog.String("output", outputPath),
	)

	cmd := exec.CommandContext(ctx, f.opts.FFmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("ffmpeg timed out after %s", f.opts.Timeout)
		}

		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("ffmpeg failed: %s", detail)
	}

	f.logger.Info("ffmpeg finished",
		slog.String("output", outputPath),
	)

	return nil
}

// buildArgs assembles the fixed-parameter command line:
// ffmpeg -i IN -y -vcodec libx264 -crf 28 [-vf drawtext=...] OUT
func (f *FFmpeg) buildArgs(inputPath, outputPath string) []string {
	args := []string{
		"-i", inputPath,
		"-y",
		"-vcodec", f.opts.VideoCodec,
		"-crf", strconv.Itoa(f.opts.CRF),
	}

	if f.opts.OverlayText != "" {
		filter := fmt.Sprintf(
			"drawtext=fontfile=%s:text='%s':x=(w-text_w)/2:y=h-text_h-10",
			f.opts.FontPath,
			f.opts.OverlayText,
		)
		args = append(args, "-vf", filter)
	}

	return append(args, outputPath)
}
