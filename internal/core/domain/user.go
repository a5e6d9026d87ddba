package domain

import "time"

const (
	RoleClient = "client"
	RoleAgent  = "agent"
)

// ValidRole reports whether role is one a caller may log in with.
func ValidRole(role string) bool {
	return role == RoleClient || role == RoleAgent
}

// User is an identity keyed by phone. The agent directory is the set of
// users whose role is RoleAgent.
type User struct {
	Phone     string    `json:"phone" bson:"_id"`
	Username  string    `json:"username" bson:"username"`
	Role      string    `json:"role" bson:"role"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Claims is the identity carried by a verified credential.
type Claims struct {
	Phone    string `json:"phone"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
