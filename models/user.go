package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        bson.ObjectID `json:"_id" bson:"_id,omitempty"`
	Username  string        `json:"username" bson:"username"`
	Email     string        `json:"email" bson:"email"`
	Password  string        `json:"-" bson:"password,omitempty"`
	Role      string        `json:"role" bson:"role"`
	IsActive  bool          `json:"isActive" bson:"isActive"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}

func (u *User) Principal() Principal {
	return Principal{ID: u.ID.Hex(), Role: u.Role}
}

// PublicUser is the owner view embedded in book responses.
type PublicUser struct {
	ID       bson.ObjectID `json:"_id"`
	Username string        `json:"username"`
	Email    string        `json:"email"`
}

// Principal is the authenticated actor of a request.
type Principal struct {
	ID   string
	Role string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type UserRegistration struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (r *UserRegistration) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileUpdate struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

func (p *ProfileUpdate) Normalize() {
	if p.Username != nil {
		u := strings.TrimSpace(*p.Username)
		p.Username = &u
	}
	if p.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*p.Email))
		p.Email = &e
	}
}

// UserUpdate is what the user store writes; Password is already hashed.
type UserUpdate struct {
	Username  *string
	Email     *string
	Password  *string
	UpdatedAt time.Time
}

type UserResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
