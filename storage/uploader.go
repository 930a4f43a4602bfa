package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader абстрагирует объектное хранилище медиафайлов (постеры и
// логотипы турниров, эмблемы команд, аватары).
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// ObjectKey генерирует уникальный ключ объекта вида
// "<prefix>/<uuid>.<ext>". Расширение выводится из content-type.
func ObjectKey(prefix, contentType string) string {
	ext := "bin"
	switch strings.ToLower(contentType) {
	case "image/png":
		ext = "png"
	case "image/jpeg", "image/jpg":
		ext = "jpg"
	case "image/webp":
		ext = "webp"
	case "image/gif":
		ext = "gif"
	case "image/svg+xml":
		ext = "svg"
	}
	return fmt.Sprintf("%s/%s.%s", strings.Trim(prefix, "/"), uuid.NewString(), ext)
}
