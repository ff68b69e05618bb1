package domain

import "time"

type User struct {
	ID           int64
	Email        string // unique, compared exactly as stored
	PasswordHash string // argon2id PHC, or bcrypt for imported rows
	FullName     *string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser describes a user to be inserted. The store assigns the ID.
type NewUser struct {
	Email        string
	PasswordHash string
	FullName     *string
	IsSuperuser  bool
}
