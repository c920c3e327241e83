package media

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io/fs"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/fortemezzo/cbird/internal/filesystem"
	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/mediatypes"
)

const (
	// MaxImageDimension bounds the image that is hashed. Larger images are
	// downscaled first; hashes are computed on tiny thumbnails anyway.
	MaxImageDimension = 1024

	// maxJPEGPadding caps the zero padding appended to a truncated jpeg.
	maxJPEGPadding = 32 << 20
)

// Extractor turns a file into an indexable item.
type Extractor interface {
	// Process reads path and returns the item. Problems that still allow
	// indexing are reported in Result.Warnings; anything else is an
	// *ExtractError.
	Process(ctx context.Context, path string, info fs.FileInfo) (Result, error)
}

// Result is the outcome of extracting one file.
type Result struct {
	Item     Item
	Warnings []ErrorTag
}

// FileExtractor reads files from disk, checksums them and fingerprints images.
// Videos and audio are checksummed only.
type FileExtractor struct {
	Algos int
	Retry filesystem.RetryConfig
}

// NewFileExtractor creates an extractor computing the given fingerprint bits.
func NewFileExtractor(algos int) *FileExtractor {
	return &FileExtractor{Algos: algos, Retry: filesystem.DefaultRetryConfig()}
}

// Process implements Extractor.
func (e *FileExtractor) Process(ctx context.Context, path string, info fs.FileInfo) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	typ := mediatypes.TypeForPath(path)
	if typ == mediatypes.TypeNone {
		return Result{}, &ExtractError{Path: path, Tag: TagUnsupported, Err: errors.New("unknown extension")}
	}

	data, err := filesystem.ReadFileWithRetry(path, e.Retry)
	if err != nil {
		return Result{}, &ExtractError{Path: path, Tag: TagIOError, Err: err}
	}

	sum := md5.Sum(data)
	res := Result{Item: Item{
		Path: path,
		Type: typ,
		MD5:  hex.EncodeToString(sum[:]),
		Size: int64(len(data)),
	}}
	if info != nil {
		res.Item.ModTime = info.ModTime()
	}

	if typ != mediatypes.TypeImage {
		return res, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		tag := TagDecodeFailed
		if errors.Is(err, image.ErrFormat) {
			tag = TagUnsupported
		}
		return Result{}, &ExtractError{Path: path, Tag: tag, Err: err}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil && format == "jpeg" {
		logging.Debug("Decode failed for %s: %v, trying truncated jpeg repair", path, err)
		repaired, rerr := imaging.Decode(bytes.NewReader(padJPEG(data, cfg)), imaging.AutoOrientation(true))
		if rerr == nil {
			img, err = repaired, nil
			res.Warnings = append(res.Warnings, TagTruncated)
		}
	}
	if err != nil {
		return Result{}, &ExtractError{Path: path, Tag: TagDecodeFailed, Err: err}
	}

	b := img.Bounds()
	res.Item.Width, res.Item.Height = b.Dx(), b.Dy()

	if b.Dx() > MaxImageDimension || b.Dy() > MaxImageDimension {
		img = imaging.Fit(img, MaxImageDimension, MaxImageDimension, imaging.Box)
	}

	fp, err := ComputeFingerprint(img, e.Algos)
	if err != nil {
		return Result{}, &ExtractError{Path: path, Tag: TagDecodeFailed, Err: fmt.Errorf("fingerprint: %w", err)}
	}
	res.Item.Fingerprint = fp

	return res, nil
}

// padJPEG appends enough zero bytes to let the decoder finish every
// remaining block of a truncated scan, followed by an end of image marker.
func padJPEG(data []byte, cfg image.Config) []byte {
	pad := (cfg.Width/8 + 1) * (cfg.Height/8 + 1) * 3 * 32
	pad = min(pad, maxJPEGPadding)

	out := make([]byte, len(data), len(data)+pad+2)
	copy(out, data)
	out = append(out, make([]byte, pad)...)
	return append(out, 0xFF, 0xD9)
}
