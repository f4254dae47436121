package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleSeller     Role = "SELLER"
	RoleDispatcher Role = "DISPATCHER"
)

var (
	ErrInvalidRole  = errors.New("invalid_staff_role")
	ErrInvalidName  = errors.New("invalid_staff_name")
	ErrNotFound     = errors.New("staff_not_found")
	ErrInvalidZone  = errors.New("invalid_staff_zone")
	ErrInvalidStaff = errors.New("invalid_staff_id")
)

// Staff is a seller or dispatcher. Zone is the current working zone and is
// only used when a sale carries no zone of its own.
type Staff struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Role      Role         `gorm:"type:text;not null;index" json:"role"`
	Zone      string       `gorm:"type:text" json:"zone,omitempty"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Staff) TableName() string { return "staff" }

func (r Role) Valid() bool {
	return r == RoleSeller || r == RoleDispatcher
}

type CreateStaffRequest struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	Zone string `json:"zone"`
}
