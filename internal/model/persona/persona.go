package persona

import "time"

// Persona is a generated character bound to one historical event.
type Persona struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Personality string    `json:"personality"`
	Event       string    `json:"event"`
	CreatedAt   time.Time `json:"-"`
}
