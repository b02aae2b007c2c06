package thumbnail

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/fedragon/status-saver/internal/models"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// Size is the side of the square box thumbnails are scaled to.
	Size = 400
	// SampleSize is the subsampling factor applied before scaling when no fast thumbnail is available.
	SampleSize = 2
)

// VideoFrameAt is where the representative frame of a video is taken from.
var VideoFrameAt = time.Second

// Resolver gives access to the bytes behind a location.
type Resolver interface {
	Open(ctx context.Context, loc models.Location) (io.ReadCloser, error)
	LocalPath(ctx context.Context, loc models.Location) (string, error)
}

// FrameExtractor decodes a single frame of the video stored at path.
type FrameExtractor interface {
	Frame(ctx context.Context, path string, at time.Duration) (image.Image, error)
}

// Thumbnailer builds a thumbnail of the given edge straight from an encoded image.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, r io.Reader, size int) (image.Image, error)
}

// Decoder produces the still frame shown for a media item.
type Decoder struct {
	Resolver Resolver
	Frames   FrameExtractor
	Fast     Thumbnailer // optional
	Logger   *zap.Logger
}

func (d *Decoder) Decode(ctx context.Context, m models.Media) (image.Image, error) {
	if m.IsVideo {
		return d.videoFrame(ctx, m)
	}

	if d.Fast != nil {
		img, err := d.fastThumbnail(ctx, m)
		if err == nil {
			return img, nil
		}
		d.Logger.Debug("Fast thumbnail failed, decoding", zap.String("location", m.Location.String()), zap.Error(err))
	}

	return d.sampled(ctx, m)
}

func (d *Decoder) videoFrame(ctx context.Context, m models.Media) (image.Image, error) {
	if d.Frames == nil {
		return nil, fmt.Errorf("%w: no frame extractor", models.ErrUnsupported)
	}

	path, err := d.Resolver.LocalPath(ctx, m.Location)
	if err != nil {
		return nil, err
	}

	frame, err := d.Frames.Frame(ctx, path, VideoFrameAt)
	if err != nil {
		d.Logger.Debug("Falling back to first frame", zap.String("path", path), zap.Error(err))
		if frame, err = d.Frames.Frame(ctx, path, 0); err != nil {
			return nil, err
		}
	}

	return imaging.Resize(frame, Size, Size, imaging.Linear), nil
}

func (d *Decoder) fastThumbnail(ctx context.Context, m models.Media) (image.Image, error) {
	r, err := d.Resolver.Open(ctx, m.Location)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return d.Fast.Thumbnail(ctx, r, Size)
}

func (d *Decoder) sampled(ctx context.Context, m models.Media) (image.Image, error) {
	r, err := d.Resolver.Open(ctx, m.Location)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %v: %w", m.DisplayName, err)
	}

	return imaging.Resize(subsample(src, SampleSize), Size, Size, imaging.Linear), nil
}

// subsample keeps one pixel out of factor on each axis.
func subsample(src image.Image, factor int) image.Image {
	b := src.Bounds()
	w, h := b.Dx()/factor, b.Dy()/factor
	if w == 0 || h == 0 {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	return dst
}

// ImagingThumbnailer is the default fast thumbnail path.
type ImagingThumbnailer struct{}

func (ImagingThumbnailer) Thumbnail(_ context.Context, r io.Reader, size int) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	return imaging.Thumbnail(img, size, size, imaging.Linear), nil
}
