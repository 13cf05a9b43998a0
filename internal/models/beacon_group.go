package models

import "time"

// Field limits for beacon groups.
const (
	BeaconGroupNameMaxLength        = 50
	BeaconGroupDescriptionMaxLength = 200
)

// BeaconGroup is a named set of beacons inside one project.
type BeaconGroup struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ProjectID uint64 `gorm:"not null;index"` // Owning project, immutable.

	Name        string `gorm:"type:varchar(50);not null"`             // Display name.
	Description string `gorm:"type:varchar(200);not null;default:''"` // Free-form description.

	Beacons []Beacon `gorm:"foreignKey:BeaconGroupID;constraint:OnDelete:SET NULL"` // Member beacons.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
