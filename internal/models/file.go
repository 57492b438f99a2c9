package models

import "strings"

// File is a server-held record describing one uploaded file.
type File struct {
	ID          int       `json:"id" yaml:"id"`
	Filename    string    `json:"filename" yaml:"filename"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Uploader    string    `json:"uploader" yaml:"uploader"`
	UploaderID  int       `json:"uploader_id" yaml:"uploader_id"`
	Link        string    `json:"link" yaml:"link"`
	Size        int64     `json:"size" yaml:"size"` // bytes
	UploadTime  Timestamp `json:"upload_time" yaml:"upload_time"`
	Downloads   int       `json:"download_counter,omitempty" yaml:"downloads,omitempty"`
}

// Ext returns the lower-cased extension without the dot.
func (f File) Ext() string {
	i := strings.LastIndex(f.Filename, ".")
	if i < 0 || i == len(f.Filename)-1 {
		return ""
	}
	return strings.ToLower(f.Filename[i+1:])
}
