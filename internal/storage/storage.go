package storage

import (
	"context"
	"errors"
)

var ErrNotImage = errors.New("файл не является изображением")

// FileStorage keeps doctor profile photos.
type FileStorage interface {
	// UploadImage stores data under folder with a generated name and returns its public URL.
	UploadImage(ctx context.Context, folder string, data []byte, filename string) (string, error)

	DeleteFile(ctx context.Context, fileURL string) error
}
