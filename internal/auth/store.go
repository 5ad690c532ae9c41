package auth

import (
	"fmt"

	"github.com/cdstail/cdstail/pkg/config"
)

// Store hands out the identity sent with every CDS request
type Store struct {
	user         string
	sessionToken string
}

// NewStore builds a store from the loaded configuration
func NewStore(cfg *config.Config) *Store {
	return &Store{
		user:         cfg.User,
		sessionToken: cfg.SessionToken,
	}
}

// User returns the configured username
func (s *Store) User() string {
	return s.user
}

// SessionToken returns the session token after checking it is usable
func (s *Store) SessionToken() (string, error) {
	if s.sessionToken == "" {
		return "", fmt.Errorf("no session token found. Please run 'cdstail login' or set CDS_SESSION_TOKEN")
	}

	if IsJWT(s.sessionToken) {
		if err := ValidateToken(s.sessionToken); err != nil {
			return "", fmt.Errorf("%w. Please run 'cdstail login'", err)
		}
	}

	return s.sessionToken, nil
}
