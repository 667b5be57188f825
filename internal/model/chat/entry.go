package chat

import "time"

// Entry is one narrated subevent in a persona's ledger.
type Entry struct {
	ID             string    `json:"id"`
	PersonaID      int64     `json:"personaId"`
	SubeventNumber int       `json:"subeventNumber"`
	Message        string    `json:"message"`
	SubeventTitle  string    `json:"subeventTitle"`
	IsUserInput    bool      `json:"isUserInput"`
	CreatedAt      time.Time `json:"createdAt"`
}
