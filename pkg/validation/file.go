package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
)

type UploadRules struct {
	AllowedMimeTypes []string
	MaxSizeMB        int64
	PathPrefix       string
}

var UploadContexts = map[string]UploadRules{
	"dispatch_attachment": {
		AllowedMimeTypes: []string{
			"image/jpeg", "image/png", "image/webp", "application/pdf",
			"text/plain; charset=utf-8", "application/zip",
		},
		MaxSizeMB:  25,
		PathPrefix: "dispatches",
	},
}

// ValidateFile проверяет размер и MIME-тип файла и возвращает обнаруженный тип.
func ValidateFile(fileHeader *multipart.FileHeader, file io.ReadSeeker, contextName string) (string, error) {
	rules, ok := UploadContexts[contextName]
	if !ok {
		return "", fmt.Errorf("внутренняя ошибка: неизвестный контекст загрузки '%s'", contextName)
	}

	if rules.MaxSizeMB > 0 {
		maxSizeBytes := rules.MaxSizeMB * 1024 * 1024
		if fileHeader.Size > maxSizeBytes {
			return "", fmt.Errorf("размер файла (%.2f MB) превышает лимит в %d MB", float64(fileHeader.Size)/1024/1024, rules.MaxSizeMB)
		}
	}

	// Читаем заголовок файла (первые 512 байт)
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("ошибка чтения файла")
	}

	// Важно: Возвращаем курсор чтения в начало!
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("ошибка обработки файла")
	}

	mimeType := http.DetectContentType(buffer[:n])
	if !slices.Contains(rules.AllowedMimeTypes, mimeType) {
		return "", fmt.Errorf("недопустимый формат файла: %s", mimeType)
	}

	return mimeType, nil
}
