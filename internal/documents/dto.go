package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	UploadedAt time.Time `json:"uploadedAt"`
	Edited     bool      `json:"edited"`
	Text       string    `json:"text"`
}

// ToResponse converts a document for JSON output. A nil document yields nil.
func ToResponse(doc *Document) *DocumentResponse {
	if doc == nil {
		return nil
	}
	return &DocumentResponse{
		FileName:   doc.FileName,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		UploadedAt: doc.UploadedAt,
		Edited:     doc.Edited,
		Text:       doc.RawText,
	}
}
