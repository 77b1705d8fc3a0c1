package qrcode

import (
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels used when callers pass 0.
const DefaultSize = 256

// maxSize bounds caller-chosen image sizes.
const maxSize = 1024

// PNG renders code as a square QR image of size x size pixels.
func PNG(code string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	png, err := goqrcode.Encode(code, goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, nil
}
