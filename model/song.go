package model

// Song is one catalog record: song metadata plus the locators of its stored assets.
type Song struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album,omitempty"`
	Genre        string `json:"genre,omitempty"`
	AudioLocator string `json:"audioLocator"`
	ImageLocator string `json:"imageLocator,omitempty"`
}

// SongUpdate describes a partial update. A nil field is left unchanged.
type SongUpdate struct {
	Title        *string
	Artist       *string
	Album        *string
	Genre        *string
	AudioLocator *string
	ImageLocator *string
}

// StringPtr is a convenience for building SongUpdate literals.
func StringPtr(s string) *string {
	return &s
}
