package models

import (
	"encoding/json"
	"fmt"
)

// Option is a single answer choice with its point value. In the quiz file an
// option is stored as a two-element array: ["answer text", points].
type Option struct {
	Text   string
	Points int
}

// UnmarshalJSON decodes the ["text", points] wire form.
func (o *Option) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("option must be an array: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("option must have exactly 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &o.Text); err != nil {
		return fmt.Errorf("option text: %w", err)
	}
	if err := json.Unmarshal(raw[1], &o.Points); err != nil {
		return fmt.Errorf("option points: %w", err)
	}
	return nil
}

// MarshalJSON encodes back to the ["text", points] wire form.
func (o Option) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{o.Text, o.Points})
}

// Question is one quiz question with lettered answer options.
type Question struct {
	Text    string            `json:"question" validate:"required"`
	Options map[string]Option `json:"options" validate:"required,min=2"`
}
