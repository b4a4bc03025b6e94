package domain

import "time"

// AuthSession is the proof of identity issued by the auth service.
// ExpiresAt is informational, expiry is not enforced locally.
type AuthSession struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	IsAdmin     bool      `json:"isAdmin"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
}

func (s AuthSession) Valid() bool {
	return s.Token != "" && s.UserID != ""
}

// Profile is the cached user-profile display object.
type Profile struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	AvatarURL string `json:"avatarUrl"`
}
