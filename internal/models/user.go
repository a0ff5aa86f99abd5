package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents operator roles for the fleet status API
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// Customer is an end user of the rental system, as read by the renter.
type Customer struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name    string             `bson:"name" json:"name"`
	Email   string             `bson:"email" json:"email"`
	Balance float64            `bson:"balance" json:"balance"`
}

// LoginRequest is the admin login body sent to the rental REST API
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	APIKey   string `json:"api_key"`
}

// LoginResponse is the rental REST API login envelope
type LoginResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Claims represents JWT claims of an operator token
type Claims struct {
	Subject string `json:"sub"`
	Role    Role   `json:"role"`
	Exp     int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// Allows reports whether a holder of r may access an endpoint requiring required.
func (r Role) Allows(required Role) bool {
	rank := map[Role]int{RoleViewer: 1, RoleOperator: 2, RoleAdmin: 3}
	return rank[r] >= rank[required] && rank[r] > 0
}
