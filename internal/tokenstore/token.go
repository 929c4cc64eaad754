package tokenstore

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

// LoadToken returns the stored access token, or nil when none is stored.
func LoadToken(s Store) (*oauth2.Token, error) {
	raw, ok, err := s.Get(KeyToken)
	if err != nil || !ok || raw == "" {
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("tokenstore: decoding token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, nil
	}
	return &tok, nil
}

// SaveToken stores tok under KeyToken.
func SaveToken(s Store, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("tokenstore: encoding token: %w", err)
	}
	return s.Set(KeyToken, string(raw))
}

// LoadJSON decodes the value under key into dst. It reports false when the
// key is absent.
func LoadJSON(s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("tokenstore: decoding %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("tokenstore: encoding %s: %w", key, err)
	}
	return s.Set(key, string(raw))
}

// Clear removes both the token and the user profile.
func Clear(s Store) error {
	if err := s.Delete(KeyToken); err != nil {
		return err
	}
	return s.Delete(KeyUser)
}
