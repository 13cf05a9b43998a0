package models

import "time"

// Field limits for projects.
const (
	ProjectNameMaxLength        = 50
	ProjectDescriptionMaxLength = 200
)

// Project is the root aggregate owning beacons and beacon groups.
type Project struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OwnerID uint64 `gorm:"not null;index"` // Owning account.

	Name        string `gorm:"type:varchar(50);not null"`             // Display name.
	Description string `gorm:"type:varchar(200);not null;default:''"` // Free-form description.
	SecretHash  string `gorm:"type:text;not null"`                    // Bcrypt hash of the project secret.

	Beacons      []Beacon      `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"` // Owned beacons.
	BeaconGroups []BeaconGroup `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"` // Owned beacon groups.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp, never overwritten.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
