package domain

import "time"

// ============================================================
// Auth: identities, credentials, request and response types
// ============================================================

// Role is the authorization role of a login.
type Role string

const (
	RoleUser     Role = "USER"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

// User is a login. Exactly one of CustomerID / EmployeeID is set for USER
// and EMPLOYEE logins; admins have neither.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	Role           Role       `json:"role"`
	CustomerID     string     `json:"customerId,omitempty"`
	EmployeeID     string     `json:"employeeId,omitempty"`
	FailedAttempts int        `json:"-"`
	LockedUntil    *time.Time `json:"-"`
	LastLoginAt    *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Principal is the authenticated caller, resolved from the access token and
// passed explicitly to the services.
type Principal struct {
	UserID     string
	Role       Role
	CustomerID string
	EmployeeID string
}

// HasRole reports whether the principal holds one of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// RefreshToken is a stored (hashed) refresh token.
type RefreshToken struct {
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
}

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	DOB      string `json:"dob"` // YYYY-MM-DD
	Phone    string `json:"phone"`
}

// RegisterResponse is the body for 201 from POST /api/auth/register.
type RegisterResponse struct {
	UserID     string `json:"userId"`
	CustomerID string `json:"customerId"`
	Message    string `json:"message"`
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body for 200 from POST /api/auth/login and /refresh.
type LoginResponse struct {
	Token        string   `json:"token"`
	Type         string   `json:"type"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresIn    int      `json:"expiresIn"`
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
}

// RefreshRequest is the body for POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
