package models

import "time"

// StoredFile represents an uploaded file written to the upload area.
type StoredFile struct {
	StorageName  string    `json:"storageName"` // generated, distinct from OriginalName
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	StoredAt     time.Time `json:"storedAt"`
}
