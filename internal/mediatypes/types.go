package mediatypes

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Type is the kind of media an item holds. Values double as bits in a Mask.
type Type int

const (
	// TypeNone is an unrecognized file.
	TypeNone Type = 0
	// TypeImage is a still image.
	TypeImage Type = 1
	// TypeVideo is a video container.
	TypeVideo Type = 2
	// TypeAudio is an audio file.
	TypeAudio Type = 3
)

// Mask selects a subset of media types.
type Mask int

const (
	MaskImage Mask = 1 << 0
	MaskVideo Mask = 1 << 1
	MaskAudio Mask = 1 << 2
	// MaskAll enables every media type.
	MaskAll = MaskImage | MaskVideo | MaskAudio
)

// Bit returns the mask bit for t, or 0 for TypeNone.
func (t Type) Bit() Mask {
	if t < TypeImage || t > TypeAudio {
		return 0
	}
	return Mask(1 << (t - 1))
}

// Has reports whether t is enabled in m.
func (m Mask) Has(t Type) bool {
	return m&t.Bit() != 0
}

// ParseType accepts a type name or its number.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range []Type{TypeImage, TypeVideo, TypeAudio} {
		if s == t.String() || s == strconv.Itoa(int(t)) {
			return t, nil
		}
	}
	return TypeNone, fmt.Errorf("unknown media type %q, want image, video, audio or 1-3", s)
}

func (t Type) String() string {
	switch t {
	case TypeImage:
		return "image"
	case TypeVideo:
		return "video"
	case TypeAudio:
		return "audio"
	default:
		return "none"
	}
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".jfif": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// AudioExtensions maps file extensions to whether they are supported audio formats.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
	".wma":  true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jfif": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",

	// Audio
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
	".wma":  "audio/x-ms-wma",
}

// GetType returns the Type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
func GetType(ext string) Type {
	if ImageExtensions[ext] {
		return TypeImage
	}
	if VideoExtensions[ext] {
		return TypeVideo
	}
	if AudioExtensions[ext] {
		return TypeAudio
	}
	return TypeNone
}

// TypeForPath classifies a file by its (case-insensitive) extension.
func TypeForPath(path string) Type {
	return GetType(strings.ToLower(filepath.Ext(path)))
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile reports whether path has an extension enabled in mask.
func IsMediaFile(path string, mask Mask) bool {
	t := TypeForPath(path)
	return t != TypeNone && mask.Has(t)
}
