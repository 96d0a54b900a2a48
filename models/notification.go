package models

import "time"

type Notification struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type HelpThread struct {
	ID      string `json:"_id"`
	UserID  string `json:"userId"`
	StaffID string `json:"staffId,omitempty"`
	Status  string `json:"status"`
}

type HelpMessage struct {
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
}
