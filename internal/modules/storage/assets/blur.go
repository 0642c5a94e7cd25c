package assets

import (
	"bytes"
	"encoding/base64"

	"github.com/disintegration/imaging"
)

// blurPlaceholder derives a tiny blurred JPEG from the full image and
// inlines it as a data URL. Vector and animated formats fail to decode
// and simply yield no placeholder.
func blurPlaceholder(data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	small := imaging.Resize(img, 20, 0, imaging.Lanczos)
	small = imaging.Blur(small, 1.2)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, small, imaging.JPEG, imaging.JPEGQuality(40)); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
