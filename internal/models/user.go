package models

import "fmt"

// UserProfile is the identity resolved from an access token via /auth/me
type UserProfile struct {
	ID               int     `json:"id"`
	Username         string  `json:"username"`
	IsAdmin          bool    `json:"is_admin"`
	TelegramID       *int64  `json:"telegram_id,omitempty"`
	TelegramUsername *string `json:"telegram_username,omitempty"`
}

// TelegramHandle returns "@name" when a telegram account is linked, otherwise ""
func (u UserProfile) TelegramHandle() string {
	if u.TelegramUsername == nil || *u.TelegramUsername == "" {
		return ""
	}
	return fmt.Sprintf("@%s", *u.TelegramUsername)
}

// Settings holds client-side preferences persisted in the local cache
type Settings struct {
	ServerURL    string `json:"server_url"`    // backend base URL, e.g. "https://habits.example.com/api"
	LastUsername string `json:"last_username"` // prefilled in the login form
	Timezone     string `json:"timezone"`      // IANA name or "Local"; decides what "today" is
}
