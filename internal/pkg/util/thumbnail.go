package util

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const ThumbnailMaxWidth = 480

// MakeThumbnail 为图片生成等比缩略图，输出 JPEG 字节流
func MakeThumbnail(reader io.Reader) (io.Reader, int64, error) {
	img, err := imaging.Decode(reader, imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, fmt.Errorf("解码图片失败: %w", err)
	}

	if img.Bounds().Dx() > ThumbnailMaxWidth {
		img = imaging.Resize(img, ThumbnailMaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, 0, fmt.Errorf("编码缩略图失败: %w", err)
	}

	return bytes.NewReader(buf.Bytes()), int64(buf.Len()), nil
}
