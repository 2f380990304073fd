package authguard

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleList stores a user's role strings as a JSON column. Unknown role
// strings are preserved in storage and only dropped at normalization time.
type RoleList []string

// Value implements driver.Valuer.
func (r RoleList) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	out, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(out), nil
}

// Scan implements sql.Scanner.
func (r *RoleList) Scan(src any) error {
	if src == nil {
		*r = RoleList{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported role list source type %T", src)
	}

	if len(data) == 0 {
		*r = RoleList{}
		return nil
	}

	return json.Unmarshal(data, r)
}

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Username      string         `bun:"username,unique" json:"username,omitempty"`
	PasswordHash  string         `bun:"password_hash" json:"-"`
	Roles         RoleList       `bun:"roles,type:jsonb" json:"roles,omitempty"`
	Active        bool           `bun:"is_active,notnull,default:true" json:"is_active"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	LoggedInAt    *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Directory projects the persisted record into the view the guard consumes.
func (u *User) Directory() *DirectoryUser {
	if u == nil {
		return nil
	}
	return &DirectoryUser{
		ID:     u.ID.String(),
		Email:  u.Email,
		Active: u.Active,
		Roles:  append([]string{}, u.Roles...),
	}
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}
