package account

import (
	"time"

	"github.com/google/uuid"
)

const (
	RolePharmacist   = "pharmacist"
	RolePharmacyTech = "pharmacy_tech"
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
)

// User is a staff account. PasswordHash never leaves the API.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	Profile      Profile    `json:"profile"`
	Permissions  []string   `db:"permissions" json:"permissions"`
	IsActive     bool       `db:"is_active" json:"isActive"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// Profile holds the staff member's personal details. Stored as flat columns
// on the user row.
type Profile struct {
	FirstName     string `db:"first_name" json:"firstName"`
	LastName      string `db:"last_name" json:"lastName"`
	LicenseNumber string `db:"license_number" json:"licenseNumber,omitempty"`
	Phone         string `db:"phone" json:"phone,omitempty"`
}

// FullName is what goes into issued tokens.
func (u *User) FullName() string {
	return u.Profile.FirstName + " " + u.Profile.LastName
}

type ListFilter struct {
	Role     string
	Search   string
	IsActive string
}
