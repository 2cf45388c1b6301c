// Package ui layout constants for consistent spacing and dimensions
package ui

// Layout constants for viewport and panel sizing
const (
	// Viewport padding and margins
	ViewportHorizontalPadding = 4
	ViewportVerticalPadding   = 8

	// Sidebar
	SidebarWidth = 28

	// Control areas
	HeaderHeight = 1
	FooterHeight = 2 // divider plus key hints
	FlashHeight  = 1
	InputHeight  = 3

	// Responsive breakpoints
	MinimumTerminalWidth  = 40
	MinimumTerminalHeight = 12
	CompactModeWidth      = 100
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	IsCompact      bool
}

// NewLayoutConfig creates a layout configuration for the given terminal
// size. compactWidth <= 0 uses CompactModeWidth.
func NewLayoutConfig(width, height, compactWidth int) LayoutConfig {
	if compactWidth <= 0 {
		compactWidth = CompactModeWidth
	}
	if width < MinimumTerminalWidth {
		width = MinimumTerminalWidth
	}
	if height < MinimumTerminalHeight {
		height = MinimumTerminalHeight
	}
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		IsCompact:      width < compactWidth,
	}
}

// PanelWidth is the width left for the active panel. In compact mode the
// sidebar becomes a drawer and the panel takes the full width.
func (l LayoutConfig) PanelWidth() int {
	if l.IsCompact {
		return l.TerminalWidth - ViewportHorizontalPadding
	}
	return l.TerminalWidth - SidebarWidth - ViewportHorizontalPadding
}

// BodyHeight is the height between header and footer.
func (l LayoutConfig) BodyHeight() int {
	return l.TerminalHeight - HeaderHeight - FooterHeight - FlashHeight
}

// ChatViewportHeight leaves room for the input and quick questions.
func (l LayoutConfig) ChatViewportHeight() int {
	h := l.BodyHeight() - InputHeight - ViewportVerticalPadding/2
	if h < 3 {
		return 3
	}
	return h
}
