package models

import "time"

type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Verified    bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

type GroupMember struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	GroupID  int64     `json:"group_id"`
	JoinedAt time.Time `json:"joined_at"`
}
