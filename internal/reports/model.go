package reports

import "time"

// Export is an archived improvement log.
type Export struct {
	ID           string    `json:"id"`
	Owner        string    `json:"-"`
	WorkspaceID  string    `json:"workspaceId"`
	StorageKey   string    `json:"storageKey"`
	SizeBytes    int64     `json:"sizeBytes"`
	Sessions     int       `json:"sessions"`
	Improvements int       `json:"improvements"`
	LatestScore  *int      `json:"latestScore"`
	CreatedAt    time.Time `json:"createdAt"`
}
