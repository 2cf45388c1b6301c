// Package tools defines the dashboard tool catalogue and the dispatcher that
// picks which tool panel is on screen.
//
// Architecture:
//
//	ToolID → Registry.Lookup() → Tool{Name, Icon, Available} → panel
//
// The profile panel is a pseudo-tool: it overlays the active tool instead of
// replacing it.
package tools

import "strings"

// ToolID is the closed set of dashboard panels.
type ToolID int

const (
	Unknown ToolID = iota
	Chat
	Sentiment
	Salary
	Retail
	Weather
	Car
	Robot
	ImageAI
	CodeHelper
	Profile
)

var idNames = map[ToolID]string{
	Unknown:    "unknown",
	Chat:       "chat",
	Sentiment:  "sentiment",
	Salary:     "salary",
	Retail:     "retail",
	Weather:    "weather",
	Car:        "car",
	Robot:      "robot",
	ImageAI:    "image-ai",
	CodeHelper: "code-helper",
	Profile:    "profile",
}

func (id ToolID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	return "unknown"
}

// ParseID maps a stored or typed name to a ToolID. Anything unrecognised is
// Unknown, which renders as the coming-soon placeholder.
func ParseID(s string) ToolID {
	s = strings.ToLower(strings.TrimSpace(s))
	for id, name := range idNames {
		if name == s {
			return id
		}
	}
	switch s {
	case "coming1":
		return ImageAI
	case "coming2":
		return CodeHelper
	}
	return Unknown
}

// ToolCategory groups tools in the sidebar.
type ToolCategory string

const (
	// CategoryAssistant covers the chatbot.
	CategoryAssistant ToolCategory = "/assistant"

	// CategoryPrediction covers the tabular predictors.
	CategoryPrediction ToolCategory = "/prediction"

	// CategoryVision covers image models.
	CategoryVision ToolCategory = "/vision"

	// CategoryDevice covers hardware control.
	CategoryDevice ToolCategory = "/device"

	// CategoryAccount covers the profile panel.
	CategoryAccount ToolCategory = "/account"
)

// Tool describes one dashboard entry.
type Tool struct {
	ID          ToolID
	Name        string
	Icon        string
	Description string
	Category    ToolCategory

	// Available is false for announced tools that have no panel yet.
	Available bool

	// Order positions the tool in the sidebar, lowest first.
	Order int

	// Hidden tools are selectable but not listed (the profile panel).
	Hidden bool
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.ID == Unknown {
		return ErrToolIDUnknown
	}
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	return nil
}

// placeholder is what Lookup returns for ids with no registration.
var placeholder = Tool{
	ID:          Unknown,
	Name:        "Unknown tool",
	Icon:        "🚧",
	Description: "Coming soon!",
	Available:   false,
}

// Selection is the dispatcher state.
type Selection struct {
	Active            ToolID
	ProfileOpen       bool
	MobileOverlayOpen bool
}
