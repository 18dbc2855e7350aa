package dto

import "github.com/aarondl/null/v8"

type CreateNoteDTO struct {
	Content  string      `json:"content" validate:"required,max=2000"`
	Category null.String `json:"category" validate:"omitempty,max=100"`
	Priority null.String `json:"priority" validate:"omitempty,max=50"`
}

type AttachmentResponseDTO struct {
	ID         string  `json:"id"`
	DispatchID string  `json:"dispatch_id"`
	FileName   string  `json:"file_name"`
	FileType   string  `json:"file_type"`
	FileSizeMB string  `json:"file_size_mb"`
	Category   *string `json:"category,omitempty"`
	UploadedBy string  `json:"uploaded_by"`
	UploadedAt string  `json:"uploaded_at"`
	URL        string  `json:"url"`
}
