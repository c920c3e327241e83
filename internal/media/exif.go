package media

import (
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/fortemezzo/cbird/internal/value"
)

// exifValue returns the first of tags present in the file's exif data.
// Tags may carry an "Exif." or group prefix ("Exif.Photo.DateTimeOriginal").
func exifValue(path string, tags []string) value.Value {
	f, err := os.Open(path)
	if err != nil {
		return value.NullValue()
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return value.NullValue()
	}

	for _, name := range tags {
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		tag, err := x.Get(exif.FieldName(name))
		if err != nil {
			continue
		}
		if v, ok := tagValue(tag); ok {
			return v
		}
	}

	return value.NullValue()
}

func tagValue(tag *tiff.Tag) (value.Value, bool) {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return value.Value{}, false
		}
		return value.FromString(strings.TrimRight(s, "\x00 ")), true
	case tiff.IntVal:
		i, err := tag.Int64(0)
		if err != nil {
			return value.Value{}, false
		}
		return value.FromInt(i), true
	case tiff.RatVal:
		num, den, err := tag.Rat2(0)
		if err != nil || den == 0 {
			return value.Value{}, false
		}
		return value.FromFloat(float64(num) / float64(den)), true
	case tiff.FloatVal:
		f, err := tag.Float(0)
		if err != nil {
			return value.Value{}, false
		}
		return value.FromFloat(f), true
	}
	return value.FromString(tag.String()), true
}
