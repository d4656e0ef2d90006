package models

// StatPair is a current/max pair for a derived stat such as HP or SAN.
type StatPair struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Character is the investigator sheet for a session. The server replaces it
// wholesale on a newCharacter push; only the portrait URL is patched in place.
type Character struct {
	Name        string         `json:"name"`
	Class       string         `json:"class"`
	Attributes  map[string]int `json:"attributes"`
	HP          StatPair       `json:"hp"`
	MP          StatPair       `json:"mp"`
	SAN         StatPair       `json:"san"`
	PortraitURL string         `json:"portraitUrl,omitempty"`
}
