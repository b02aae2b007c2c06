package platform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"time"
)

// FFmpegFrames extracts video frames by piping a single PNG out of ffmpeg.
type FFmpegFrames struct {
	Binary string
}

func (f FFmpegFrames) Frame(ctx context.Context, path string, at time.Duration) (image.Image, error) {
	binary := f.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("unable to extract frame at %v from %v: %w: %s", at, path, err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("no frame at %v in %v", at, path)
	}

	return png.Decode(&stdout)
}
