package models

type User struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Address      string `json:"address,omitempty"`
	Avatar       string `json:"avatar"`
	Role         string `json:"role"`
	RefreshToken string `json:"refreshToken,omitempty"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
	Version      int    `json:"__v"`
}

// StoredUser is the persisted shape of the "user" credential-store entry.
type StoredUser struct {
	UserInfo    User   `json:"userInfo"`
	AccessToken string `json:"accessToken"`
}
