package forensic

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// extractEXIF pulls readable EXIF tags from JPEG or TIFF bytes. Most
// scanned certificates have no EXIF at all, so a nil map is not an anomaly.
func extractEXIF(data []byte) map[string]string {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	tags := make(map[string]string)
	walker := exifWalker{tags: tags}
	if err := x.Walk(&walker); err != nil {
		return tags
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

type exifWalker struct {
	tags map[string]string
}

func (w *exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	switch name {
	case exif.ThumbJPEGInterchangeFormat, exif.ThumbJPEGInterchangeFormatLength, exif.MakerNote:
		return nil
	}
	if tag == nil {
		return nil
	}
	w.tags[string(name)] = tag.String()
	return nil
}
