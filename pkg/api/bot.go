package api

type (
	// BotConfig is the per-bot runtime configuration the engine consults
	// before dispatch: which graph is the main flow, which keywords force
	// a restart, and what to say to unexpected free text
	BotConfig struct {
		ID              BotID    `json:"id"`
		MainGraph       GraphID  `json:"main_graph_id"`
		RestartKeywords []string `json:"restart_keywords,omitempty"`
		Fallback        string   `json:"fallback_message,omitempty"`
	}
)

// DefaultFallback is sent for unexpected input when a bot has no
// configured fallback message
const DefaultFallback = "Sorry, I didn't understand that."
