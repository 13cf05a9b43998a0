package service

import "strings"

// OwnerInput carries owner registration fields.
type OwnerInput struct {
	Username string `json:"username" validate:"required,max=50,username"`
}

// ProjectInput carries project fields for create.
type ProjectInput struct {
	Name        string `json:"name" validate:"min=1,max=50"`
	Description string `json:"description" validate:"max=200"`
}

// ProjectUpdate carries optional project fields for partial updates.
type ProjectUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// GroupInput carries beacon group fields for create.
type GroupInput struct {
	Name        string `json:"name" validate:"min=1,max=50"`
	Description string `json:"description" validate:"max=200"`
}

// GroupUpdate carries optional beacon group fields for partial updates.
type GroupUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// BeaconInput carries beacon fields for create.
type BeaconInput struct {
	UUID        string `json:"uuid" validate:"len=36"`
	Major       string `json:"major" validate:"min=1,max=4"`
	Minor       string `json:"minor" validate:"min=1,max=4"`
	Description string `json:"description" validate:"max=200"`
}

// BeaconUpdate carries optional beacon fields for partial updates.
type BeaconUpdate struct {
	UUID        *string `json:"uuid"`
	Major       *string `json:"major"`
	Minor       *string `json:"minor"`
	Description *string `json:"description"`
}

// BeaconQuery filters beacons by fingerprint. Empty fields are wildcards.
type BeaconQuery struct {
	UUID  string
	Major string
	Minor string
}

// LookupRequest is what a device presents to find its beacon record.
type LookupRequest struct {
	UUID   string `json:"uuid" validate:"len=36"`
	Major  string `json:"major" validate:"min=1,max=4"`
	Minor  string `json:"minor" validate:"min=1,max=4"`
	Secret string `json:"secret" validate:"required"`
}

// NormalizeFingerprint uppercases a UUID, major or minor value.
func NormalizeFingerprint(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func (in *BeaconInput) normalize() {
	in.UUID = NormalizeFingerprint(in.UUID)
	in.Major = NormalizeFingerprint(in.Major)
	in.Minor = NormalizeFingerprint(in.Minor)
}

func (q *BeaconQuery) normalize() {
	q.UUID = NormalizeFingerprint(q.UUID)
	q.Major = NormalizeFingerprint(q.Major)
	q.Minor = NormalizeFingerprint(q.Minor)
}

func (q BeaconQuery) empty() bool {
	return q.UUID == "" && q.Major == "" && q.Minor == ""
}
