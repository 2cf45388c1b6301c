package main

import (
	"fmt"
	"path/filepath"

	"aistudio/cmd/studio/app"
	prefs "aistudio/cmd/studio/config"
	"aistudio/cmd/studio/ui"
	"aistudio/internal/usage"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runInteractive starts the full-screen interface.
func runInteractive(cmd *cobra.Command, args []string) error {
	env, err := openStudio()
	if err != nil {
		return err
	}
	defer env.Close()

	stateDir := filepath.Dir(cfg.Storage.Path)
	tracker, err := usage.NewTracker(stateDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracker.Close(); err != nil {
			logger.Warn("failed to save tool usage", zap.Error(err))
		}
	}()

	prefsPath := prefs.File(stateDir)
	p, err := prefs.Load(prefsPath)
	if err != nil {
		logger.Warn("ignoring unreadable preferences", zap.String("path", prefsPath), zap.Error(err))
	}
	if p.RobotAddress == "" {
		p.RobotAddress = cfg.Robot.Address
	}
	theme := cfg.UI.Theme
	if p.Theme != "" && p.Theme != "auto" {
		theme = p.Theme
	}

	model := app.New(app.Deps{
		Studio:       env.studio,
		API:          env.api,
		BootTimeout:  cfg.GetValidateTimeout(),
		RobotTimeout: cfg.GetRobotTimeout(),
		Prefs:        p,
		SavePrefs:    func(next prefs.Prefs) error { return prefs.Save(prefsPath, next) },
		Styles:       ui.NewStyles(ui.ThemeByName(theme)),
		CompactWidth: cfg.UI.CompactWidth,
		Usage:        tracker,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("interface exited: %w", err)
	}
	return nil
}
