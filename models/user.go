package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles a user account can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a platform account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Name         string      `gorm:"size:64;not null" json:"name"`
	Email        string      `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string      `gorm:"size:255;not null" json:"-"`
	PhoneNo      *string     `gorm:"size:15;uniqueIndex" json:"phone_no,omitempty"`
	Photo        []byte      `gorm:"type:mediumblob" json:"-"`
	PhotoType    string      `gorm:"size:64" json:"-"`
	Role         string      `gorm:"size:16;not null;default:'user'" json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	SavedBlogs   []SavedBlog `json:"-"`
	Blogs        []Blog      `gorm:"foreignKey:AuthorID" json:"-"`
}

// IsAdmin reports whether the account holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeCreate ensures the role is always one of the enumerated values.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role != RoleAdmin {
		u.Role = RoleUser
	}
	return nil
}

// SavedBlog is one entry in a user's saved-blog set. The composite primary key
// gives set semantics: a duplicate insert hits the key instead of creating a
// second row. CreatedAt preserves insertion order for display.
type SavedBlog struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	BlogID    uint      `gorm:"primaryKey;autoIncrement:false" json:"blog_id"`
	CreatedAt time.Time `json:"created_at"`
}
