package utils

import (
	"github.com/skip2/go-qrcode"
)

// TerminalQR renders content as a QR code made of block characters.
func TerminalQR(content string) (string, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}

// WriteQRPNG writes content as a size×size PNG QR code to path.
func WriteQRPNG(content, path string, size int) error {
	return qrcode.WriteFile(content, qrcode.Medium, size, path)
}
