package profile

// Profile describes the assistant a widget session talks to.
type Profile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	Avatar       string `json:"avatar"`
	Greeting     string `json:"greeting"`
	SystemPrompt string `json:"-"`
	Description  string `json:"description,omitempty"`
}

// DefaultID is the profile used when a session does not ask for one.
const DefaultID = "support"

// Seed provides the built-in assistant profiles.
func Seed() []Profile {
	return []Profile{
		{
			ID:           DefaultID,
			Name:         "Policy Assistant",
			Title:        "Support Chat",
			Avatar:       "PR",
			Greeting:     "Hello! How can I help you today?",
			SystemPrompt: "You are a helpful assistant. Answer concisely.",
			Description:  "Answers questions about policies and rule sets.",
		},
	}
}
