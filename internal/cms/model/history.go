package model

import "time"

// AuditAction names a state-changing operation.
type AuditAction string

const (
	AuditActionSave           AuditAction = "save"
	AuditActionPublish        AuditAction = "publish"
	AuditActionRestoreVersion AuditAction = "restore-version"
	AuditActionBackup         AuditAction = "backup"
	AuditActionRestoreBackup  AuditAction = "restore-backup"
	AuditActionDeleteBackup   AuditAction = "delete-backup"
	AuditActionMediaUpload    AuditAction = "media-upload"
	AuditActionMediaDelete    AuditAction = "media-delete"
)

// Version is an immutable snapshot of the published content taken before a mutation.
type Version struct {
	VersionID string    `json:"versionId"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Label     string    `json:"label,omitempty"`
	Snapshot  *Content  `json:"snapshot"`
}

// BackupMeta describes a backup without its snapshot.
type BackupMeta struct {
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	Size      int64     `json:"size,omitempty"`
}

// Backup is a durable named copy of the published content.
type Backup struct {
	BackupMeta
	Snapshot *Content `json:"snapshot"`
}

// AuditEntry records who did what and when.
type AuditEntry struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	User      string      `json:"user"`
	Action    AuditAction `json:"action"`
	Detail    string      `json:"detail,omitempty"`
}

// MediaAsset is an uploaded file referenced by content.
type MediaAsset struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
	UploadedBy string    `json:"uploadedBy,omitempty"`
}
