package domain

import "time"

type Session struct {
	ID        string    `json:"id"`
	Persona   Message   `json:"persona"`
	CreatedAt time.Time `json:"created_at"`
}
