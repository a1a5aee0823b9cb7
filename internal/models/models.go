package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"     json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         Role      `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt    time.Time `gorm:"not null"                 json:"createdAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type Sweet struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"index;not null"       json:"name"`
	Category    string    `gorm:"not null"             json:"category"`
	Price       float64   `gorm:"not null;check:price >= 0"    json:"price"`
	Quantity    int       `gorm:"not null;check:quantity >= 0" json:"quantity"`
	Description string    `json:"description"`
	CreatedAt   time.Time `gorm:"not null"             json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null"             json:"updatedAt"`
}

func (s *Sweet) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// All lists every model the store migrates.
func All() []any {
	return []any{&User{}, &Sweet{}}
}
