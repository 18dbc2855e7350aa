package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type Attachment struct {
	ID          string          `json:"id"`
	DispatchID  string          `json:"dispatch_id"`
	FileName    string          `json:"file_name"`
	FileType    string          `json:"file_type"`
	FileSizeMB  decimal.Decimal `json:"file_size_mb"`
	Category    *string         `json:"category,omitempty"`
	UploadedBy  string          `json:"uploaded_by"`
	UploadedAt  time.Time       `json:"uploaded_at"`
	StoragePath string          `json:"storage_path"`
}

type Note struct {
	ID         string    `json:"id"`
	DispatchID string    `json:"dispatch_id"`
	Content    string    `json:"content"`
	Category   *string   `json:"category,omitempty"`
	Priority   *string   `json:"priority,omitempty"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}
