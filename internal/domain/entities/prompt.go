package entities

import (
	"strings"
	"time"
)

// Prompt is a stored prompt template. Placeholders use {name} syntax and are
// substituted at render time; unknown placeholders are left intact.
type Prompt struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Template  string    `json:"template"`
	Active    bool      `json:"active"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Render substitutes {name} placeholders from vars. Placeholders without a
// matching var survive verbatim so a half-filled template stays inspectable.
func (p *Prompt) Render(vars map[string]string) string {
	rendered := p.Template
	for name, value := range vars {
		rendered = strings.ReplaceAll(rendered, "{"+name+"}", value)
	}
	return rendered
}
