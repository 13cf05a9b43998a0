package models

import "time"

// Owner is the account that projects are registered under.
type Owner struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:varchar(50);not null;uniqueIndex"` // Unique path segment.

	Projects []Project `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"` // Owned projects.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
