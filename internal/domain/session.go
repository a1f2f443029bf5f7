package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type UserID int64

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RolePatient, RoleDoctor:
		return role, nil
	case "":
		return RolePatient, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedRole, raw)
	}
}

type User struct {
	ID        UserID
	Username  string
	Role      Role
	FirstName string
	LastName  string
	Email     string
}

// DisplayName prefers "First Last", then the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Username
}

type Session struct {
	// Token is never persisted with the session record; it lives in the secret store under TokenRef.
	Token     string
	TokenRef  string
	BaseURL   string
	User      User
	CreatedAt time.Time
}

func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

// RequireRole fails with ErrWrongRole when the session belongs to another role.
func (s Session) RequireRole(role Role) error {
	if s.User.Role != role {
		return fmt.Errorf("%w: signed in as %s, command requires %s", ErrWrongRole, s.User.Role, role)
	}
	return nil
}

// TokenRefFor names the secret-store key holding a session token:
// healthcare/<host>/<username>/token.
func TokenRefFor(baseURL string, username string) string {
	host := "default"
	if parsed, err := url.Parse(strings.TrimSpace(baseURL)); err == nil && parsed.Host != "" {
		host = strings.ReplaceAll(parsed.Host, ":", "_")
	}
	user := strings.Trim(strings.ReplaceAll(strings.TrimSpace(username), "/", "_"), ".")
	if user == "" {
		user = "anonymous"
	}
	return "healthcare/" + host + "/" + user + "/token"
}

type Registration struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      Role
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	if r.Role != RolePatient && r.Role != RoleDoctor {
		return fmt.Errorf("%w: %q", ErrUnsupportedRole, r.Role)
	}
	return nil
}
