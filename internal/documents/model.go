package documents

import "time"

// Document is the extracted text of an uploaded CV or job description.
// It is immutable: re-uploads and text edits produce a new value.
type Document struct {
	RawText    string
	FileName   string
	MimeType   string
	SizeBytes  int64
	UploadedAt time.Time
	Edited     bool
}

// IsZero reports whether no document has been provided.
func (d *Document) IsZero() bool {
	return d == nil || d.RawText == ""
}

// WithText returns a copy carrying replacement text, marked as edited.
func (d Document) WithText(text string, now time.Time) Document {
	d.RawText = text
	d.SizeBytes = int64(len(text))
	d.UploadedAt = now
	d.Edited = true
	return d
}
