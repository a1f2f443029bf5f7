package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int            `toml:"version"`
	Session *sessionSchema `toml:"session,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported session schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	BaseURL   string     `toml:"base_url"`
	TokenRef  string     `toml:"token_ref"`
	CreatedAt string     `toml:"created_at,omitempty"`
	User      userSchema `toml:"user"`
}

type userSchema struct {
	ID        int64  `toml:"id"`
	Username  string `toml:"username"`
	Role      string `toml:"role"`
	FirstName string `toml:"first_name,omitempty"`
	LastName  string `toml:"last_name,omitempty"`
	Email     string `toml:"email,omitempty"`
}
