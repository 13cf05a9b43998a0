package models

import "time"

// Field limits for beacons.
const (
	BeaconUUIDLength           = 36
	BeaconMajorMaxLength       = 4
	BeaconMinorMaxLength       = 4
	BeaconDescriptionMaxLength = 200
)

// Beacon is a BLE advertising identity (UUID/major/minor) inside a project.
type Beacon struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ProjectID     uint64  `gorm:"not null;index"` // Owning project, immutable.
	BeaconGroupID *uint64 `gorm:"index"`          // Optional group membership.

	UUID        string `gorm:"column:uuid;type:varchar(36);not null;index:idx_beacons_fingerprint,priority:1"` // Uppercase UUID.
	Major       string `gorm:"type:varchar(4);not null;index:idx_beacons_fingerprint,priority:2"`              // Uppercase major.
	Minor       string `gorm:"type:varchar(4);not null;index:idx_beacons_fingerprint,priority:3"`              // Uppercase minor.
	Description string `gorm:"type:varchar(200);not null;default:''"`                                          // Free-form description.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
