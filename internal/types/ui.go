package types

type StatsMessage struct {
	Type  string         `json:"type"`
	Stats map[string]any `json:"stats"`
}

type CommandResult struct {
	Type    string `json:"type"`
	Line    string `json:"line"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
