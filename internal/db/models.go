package db

import (
	"time"
)

// User table. Owned by the account subsystem; the engine reads it read-only.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Verified     bool   `gorm:"default:false"`
	Active       bool   `gorm:"default:true"`
	LastActiveAt time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Profile is one-to-one with User. Gender and orientation are stored in
// lower-case canonical form; normalization happens once at the storage
// boundary, never in consumers.
type Profile struct {
	UserID      uint64 `gorm:"primaryKey"`
	Gender      string `gorm:"size:16;not null;index"`
	Orientation string `gorm:"size:16;not null"`
	BirthDate   time.Time
	Bio         string    `gorm:"size:1024"`
	FameRating  float64   `gorm:"not null;default:0;index"`
	PhotoCount  int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Location history for a user. Only the most recent row (by updated_at) is
// authoritative for distance computation.
type Location struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement"`
	UserID    uint64  `gorm:"not null;index:idx_location_user_updated,priority:1"`
	Latitude  float64 `gorm:"not null"`
	Longitude float64 `gorm:"not null"`
	City      string  `gorm:"size:128"`
	Country   string  `gorm:"size:128"`
	Source    string  `gorm:"size:16;not null"` // GPS | IP | MANUAL
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index:idx_location_user_updated,priority:2,sort:desc"`
}

// Location source values.
const (
	LocationSourceGPS    = "GPS"
	LocationSourceIP     = "IP"
	LocationSourceManual = "MANUAL"
)

// Tag is an interest label; UserTag is the many-to-many join.
type Tag struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex;size:64;not null"`
}

type UserTag struct {
	UserID uint64 `gorm:"primaryKey"`
	TagID  uint64 `gorm:"primaryKey;index"`
}

// Like is a directed edge, unique per ordered pair. Both directions present
// between A and B define a match.
//
// Composite PK (UserID, LikedUserID):
//   - serializes concurrent likes from the same actor into a single row.
//
// Index idx_like_recipient(liked_user_id, created_at DESC) backs the
// "who liked me" lists.
type Like struct {
	UserID      uint64    `gorm:"primaryKey"`
	LikedUserID uint64    `gorm:"primaryKey;index:idx_like_recipient,priority:1"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_like_recipient,priority:2,sort:desc"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Block is a directed edge. Presence in either direction excludes the pair
// from each other's discovery, search and profile access.
type Block struct {
	UserID        uint64    `gorm:"primaryKey"`
	BlockedUserID uint64    `gorm:"primaryKey;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// Pass records a discovery skip. Soft signal only: it never blocks future
// re-surfacing of the passed user.
type Pass struct {
	UserID       uint64    `gorm:"primaryKey"`
	PassedUserID uint64    `gorm:"primaryKey"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Report is directed, at most one per ordered pair; duplicates are rejected,
// not overwritten.
type Report struct {
	ReporterID     uint64    `gorm:"primaryKey"`
	ReportedUserID uint64    `gorm:"primaryKey;index"`
	Reason         string    `gorm:"size:512;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// ProfileView is an append-only log; multiple rows per pair are allowed and
// deduplicated to most-recent-per-viewer when rendering "who viewed me".
type ProfileView struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	ViewerID     uint64    `gorm:"not null;index"`
	ViewedUserID uint64    `gorm:"not null;index:idx_view_target_created,priority:1"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_view_target_created,priority:2,sort:desc"`
}

// Notification types.
const (
	NotificationLike   = "LIKE"
	NotificationUnlike = "UNLIKE"
	NotificationMatch  = "MATCH"
	NotificationVisit  = "VISIT"
	NotificationMsg    = "MESSAGE"
)

// Notification rows are created by the dispatcher and mutated only by
// mark-read operations.
type Notification struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	UserID     uint64 `gorm:"not null;index:idx_notification_user_created,priority:1"`
	FromUserID uint64 `gorm:"not null"`
	Type       string `gorm:"size:16;not null"`
	Content    string `gorm:"size:512"`
	Read       bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_notification_user_created,priority:2,sort:desc"`
}
