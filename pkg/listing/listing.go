// Package listing builds the text side of a marketplace listing and writes
// finished projects to disk.
package listing

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// Measurement is one named size value, e.g. {"chest_width", "52"}
type Measurement struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Listing is the metadata a user fills in for one project
type Listing struct {
	ClothingType   string        `json:"clothing_type"`
	State          string        `json:"state"`
	Measurements   []Measurement `json:"measurements"`
	SelectedTags   []string      `json:"selected_tags"`
	SelectedColors []string      `json:"selected_colors"`
	CustomHashtags string        `json:"custom_hashtags"`
	Description    string        `json:"generated_description"`
	OwnerLetter    string        `json:"owner_letter"`
	StorageLetter  string        `json:"storage_letter"`
}

// Clone returns a deep copy
func (l Listing) Clone() Listing {
	l.Measurements = slices.Clone(l.Measurements)
	l.SelectedTags = slices.Clone(l.SelectedTags)
	l.SelectedColors = slices.Clone(l.SelectedColors)
	return l
}

// SetMeasurement updates field in place or appends it
func (l *Listing) SetMeasurement(field, value string) {
	for i := range l.Measurements {
		if l.Measurements[i].Field == field {
			l.Measurements[i].Value = value
			return
		}
	}
	l.Measurements = append(l.Measurements, Measurement{Field: field, Value: value})
}

// Mapping groups tag aliases: a tag matching a key or any of its values
// expands to all of the values.
type Mapping map[string][]string

// LoadMapping reads a JSON object of string arrays
func LoadMapping(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hashtag mapping: %w", err)
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse hashtag mapping: %w", err)
	}
	return m, nil
}
