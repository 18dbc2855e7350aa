package filestorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStorageInterface хранит бинарные вложения; ядро сохраняет только путь и метаданные.
type FileStorageInterface interface {
	Save(ctx context.Context, file io.Reader, originalFileName, contentType, prefix string) (filePath string, err error)
	Delete(ctx context.Context, filePath string) error
	// URL - адрес для скачивания сохраненного файла клиентом.
	URL(filePath string) string
}

// LocalPublicPrefix - маршрут, под которым echo отдает локальные файлы.
const LocalPublicPrefix = "/uploads/"

type LocalFileStorage struct {
	basePath string
}

func NewLocalFileStorage(basePath string) (FileStorageInterface, error) {
	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		if err := os.MkdirAll(basePath, 0o755); err != nil {
			return nil, fmt.Errorf("не удалось создать директорию: %w", err)
		}
	}
	return &LocalFileStorage{basePath: basePath}, nil
}

func objectKey(originalFileName, prefix string, now time.Time) string {
	ext := filepath.Ext(originalFileName)
	uniqueFileName := fmt.Sprintf("%s-%s%s", now.Format("2006-01-02"), uuid.New().String(), ext)
	return filepath.ToSlash(filepath.Join(prefix, now.Format("2006/01/02"), uniqueFileName))
}

func (s *LocalFileStorage) Save(_ context.Context, file io.Reader, originalFileName, _ string, prefix string) (string, error) {
	key := objectKey(originalFileName, prefix, time.Now())
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		return "", err
	}

	return key, nil
}

func (s *LocalFileStorage) Delete(_ context.Context, filePath string) error {
	relativePath := strings.TrimPrefix(filePath, LocalPublicPrefix)
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(relativePath))

	// Если файла и так нет, считаем операцию успешной.
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(fullPath)
}

func (s *LocalFileStorage) URL(filePath string) string {
	return LocalPublicPrefix + strings.TrimPrefix(filepath.ToSlash(filePath), "/")
}
