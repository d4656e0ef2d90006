package models

// NPCDescription is one named NPC entry in a story summary.
type NPCDescription struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Summary is the narrative recap pushed by the server and rendered in the
// modal's view mode.
type Summary struct {
	GoldenFacts     []string         `json:"goldenFacts"`
	RecentEvents    string           `json:"recentEvents"`
	NPCDescriptions []NPCDescription `json:"npcDescription"`
}
