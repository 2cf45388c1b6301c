package tools

import (
	"fmt"
	"sort"
	"sync"

	"aistudio/internal/logging"
)

// Registry holds the tool catalogue.
// It is thread-safe and supports registration at runtime.
type Registry struct {
	mu    sync.RWMutex
	tools map[ToolID]*Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[ToolID]*Tool),
	}
}

// DefaultRegistry returns the studio catalogue.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range []*Tool{
		{ID: Chat, Name: "AI Chatbot", Icon: "💬", Description: "Chat with AI assistant", Category: CategoryAssistant, Available: true, Order: 10},
		{ID: Sentiment, Name: "Sentiment Analyzer", Icon: "📊", Description: "Analyze text emotions using AI", Category: CategoryPrediction, Available: true, Order: 20},
		{ID: Salary, Name: "Salary Predictor", Icon: "💰", Description: "AI-powered salary estimates", Category: CategoryPrediction, Available: true, Order: 30},
		{ID: Retail, Name: "Retail Deals Predictor", Icon: "🛒", Description: "Upload sales data, find trends", Category: CategoryPrediction, Available: true, Order: 40},
		{ID: Weather, Name: "Weather Predictor", Icon: "🌦️", Description: "Forecast from current readings", Category: CategoryPrediction, Available: true, Order: 50},
		{ID: Car, Name: "Car Recognizer", Icon: "🚗", Description: "Identify a car brand from a photo", Category: CategoryVision, Available: true, Order: 60},
		{ID: Robot, Name: "Robot Car", Icon: "🤖", Description: "Drive the ESP32 robot car", Category: CategoryDevice, Available: true, Order: 70},
		{ID: ImageAI, Name: "Image AI", Icon: "🖼️", Description: "Coming soon!", Category: CategoryVision, Order: 80},
		{ID: CodeHelper, Name: "Code Helper", Icon: "👨‍💻", Description: "Coming soon!", Category: CategoryAssistant, Order: 90},
		{ID: Profile, Name: "Profile", Icon: "👤", Description: "Your account", Category: CategoryAccount, Available: true, Order: 100, Hidden: true},
	} {
		r.MustRegister(t)
	}
	return r
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same id already exists.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.ID]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.ID)
	}

	r.tools[tool.ID] = tool

	logging.ToolsDebug("Registered tool: %s (category=%s, available=%v)", tool.ID, tool.Category, tool.Available)
	return nil
}

// MustRegister registers a tool and panics on error.
// Use this for static tool registration at init time.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.ID, err))
	}
}

// Get returns a tool by id, or nil if not found.
func (r *Registry) Get(id ToolID) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[id]
}

// Lookup returns the tool for id, or the coming-soon placeholder when id is
// not registered. It never fails.
func (r *Registry) Lookup(id ToolID) Tool {
	if t := r.Get(id); t != nil {
		return *t
	}
	p := placeholder
	p.ID = id
	return p
}

// Has returns true if a tool with the given id is registered.
func (r *Registry) Has(id ToolID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[id]
	return ok
}

// Resolve maps a stored tool name (as written by ToolID.String) to its
// registration. Names that parse to nothing registered are ErrToolNotFound.
func (r *Registry) Resolve(name string) (Tool, error) {
	t := r.Get(ParseID(name))
	if t == nil {
		return Tool{}, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return *t, nil
}

// Listed returns the tools shown in the sidebar, in order.
func (r *Registry) Listed() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		if !tool.Hidden {
			result = append(result, tool)
		}
	}
	sortByOrder(result)
	return result
}

func sortByOrder(tools []*Tool) {
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Order < tools[j].Order
	})
}
