package tools

import "aistudio/internal/logging"

// Dispatcher selects the dashboard panel. The mobile overlay flag is
// independent of the active tool except that selecting a tool closes it.
// Not safe for concurrent use; the owner serializes events.
type Dispatcher struct {
	registry *Registry
	sel      Selection
}

// NewDispatcher starts at Chat with the overlay closed.
func NewDispatcher(registry *Registry) *Dispatcher {
	if registry == nil {
		registry = DefaultRegistry()
	}
	d := &Dispatcher{registry: registry}
	d.Reset()
	return d
}

// Registry returns the catalogue the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// SelectTool makes id the active tool, closes the overlay and leaves the
// profile panel. Unregistered ids are accepted and render as placeholders.
// Selecting Profile is the same as OpenProfile.
func (d *Dispatcher) SelectTool(id ToolID) {
	if id == Profile {
		d.OpenProfile()
		d.sel.MobileOverlayOpen = false
		return
	}
	if !d.registry.Has(id) {
		logging.ToolsWarn("Selected unregistered tool %s, showing placeholder", id)
	}
	d.sel.Active = id
	d.sel.ProfileOpen = false
	d.sel.MobileOverlayOpen = false
	logging.ToolsDebug("Active tool: %s", id)
}

// OpenProfile shows the profile over the active tool.
func (d *Dispatcher) OpenProfile() {
	d.sel.ProfileOpen = true
}

// CloseProfile returns to the tool that was active before OpenProfile.
func (d *Dispatcher) CloseProfile() {
	d.sel.ProfileOpen = false
}

// ToggleMobileOverlay flips the overlay flag and nothing else.
func (d *Dispatcher) ToggleMobileOverlay() {
	d.sel.MobileOverlayOpen = !d.sel.MobileOverlayOpen
}

// Reset returns to Chat with the overlay and profile closed.
func (d *Dispatcher) Reset() {
	d.sel = Selection{Active: Chat}
}

// Current is the panel on screen: Profile while the profile is open,
// otherwise the active tool.
func (d *Dispatcher) Current() ToolID {
	if d.sel.ProfileOpen {
		return Profile
	}
	return d.sel.Active
}

// CurrentTool resolves Current through the registry.
func (d *Dispatcher) CurrentTool() Tool {
	return d.registry.Lookup(d.Current())
}

// Selection returns a copy of the raw state.
func (d *Dispatcher) Selection() Selection {
	return d.sel
}
