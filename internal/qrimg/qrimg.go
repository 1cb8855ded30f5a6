package qrimg

import (
	"encoding/base64"
	"errors"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const dataURIPrefix = "data:image/png;base64,"

var (
	// ErrEmptyContent 二维码内容为空
	ErrEmptyContent = errors.New("empty qr content")
	// ErrInvalidDataURI 不是合法的 PNG data URI
	ErrInvalidDataURI = errors.New("invalid png data uri")
)

// Encoder 二维码 PNG 编码器
type Encoder struct {
	size  int
	level qrcode.RecoveryLevel
}

// NewEncoder 创建编码器。
// size 为输出 PNG 边长像素，level 取 low/medium/high/highest。
func NewEncoder(size int, level string) *Encoder {
	if size <= 0 {
		size = 300
	}
	return &Encoder{size: size, level: parseLevel(level)}
}

func parseLevel(level string) qrcode.RecoveryLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low":
		return qrcode.Low
	case "high":
		return qrcode.High
	case "highest":
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// EncodePNG 把文本编码为 PNG 字节
func (e *Encoder) EncodePNG(content string) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	return qrcode.Encode(content, e.level, e.size)
}

// EncodeDataURI 把文本编码为 PNG data URI，便于直接入库
func (e *Encoder) EncodeDataURI(content string) (string, error) {
	png, err := e.EncodePNG(content)
	if err != nil {
		return "", err
	}
	return ToDataURI(png), nil
}

// ToDataURI 把 PNG 字节包装为 data URI
func ToDataURI(png []byte) string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png)
}

// FromDataURI 从 data URI 还原 PNG 字节
func FromDataURI(uri string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(uri, dataURIPrefix)
	if !ok {
		return nil, ErrInvalidDataURI
	}
	png, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidDataURI
	}
	return png, nil
}
