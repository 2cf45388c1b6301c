package ui

import "testing"

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("AISTUDIO_DARK_MODE", "1")
	dark := DetectTheme()
	if !dark.IsDark {
		t.Fatalf("expected dark theme when AISTUDIO_DARK_MODE=1")
	}

	t.Setenv("AISTUDIO_DARK_MODE", "")
	light := DetectTheme()
	if light.IsDark {
		t.Fatalf("expected light theme when AISTUDIO_DARK_MODE is unset")
	}

	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Fatalf("expected dark theme for a black COLORFGBG background")
	}
}

func TestThemeByName(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("AISTUDIO_DARK_MODE", "")
	if !ThemeByName("Dark").IsDark {
		t.Errorf("dark should be dark")
	}
	if ThemeByName("light").IsDark {
		t.Errorf("light should be light")
	}
	if ThemeByName("auto").IsDark {
		t.Errorf("auto should fall back to light without hints")
	}
}

func TestLayoutCompact(t *testing.T) {
	wide := NewLayoutConfig(140, 40, 0)
	if wide.IsCompact {
		t.Errorf("140 columns should not be compact")
	}
	if got, want := wide.PanelWidth(), 140-SidebarWidth-ViewportHorizontalPadding; got != want {
		t.Errorf("PanelWidth = %d, want %d", got, want)
	}

	narrow := NewLayoutConfig(80, 24, 0)
	if !narrow.IsCompact {
		t.Errorf("80 columns should be compact")
	}
	if got, want := narrow.PanelWidth(), 80-ViewportHorizontalPadding; got != want {
		t.Errorf("PanelWidth = %d, want %d", got, want)
	}

	tiny := NewLayoutConfig(0, 0, 0)
	if tiny.TerminalWidth != MinimumTerminalWidth || tiny.ChatViewportHeight() < 3 {
		t.Errorf("tiny terminals are clamped, got %+v", tiny)
	}
}
