package systray

import (
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/getlantern/systray"
)

// Actions are the agent operations reachable from the tray menu
type Actions interface {
	StartCapture() error
	ClearSelectedKey() error
	CombinationLabel() string
}

// SystrayManager manages the system tray icon and menu
type SystrayManager struct {
	webURL   string // empty when the dashboard is disabled
	iconData []byte
	actions  Actions
	quit     chan struct{}

	mCombo *systray.MenuItem
}

// NewSystrayManager creates a new systray manager
func NewSystrayManager(webURL string, iconData []byte, actions Actions) *SystrayManager {
	return &SystrayManager{
		webURL:   webURL,
		iconData: iconData,
		actions:  actions,
		quit:     make(chan struct{}),
	}
}

// Run starts the system tray (blocking call, must be on the main thread)
func (m *SystrayManager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Stop stops the system tray
func (m *SystrayManager) Stop() {
	systray.Quit()
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *SystrayManager) WaitForQuit() <-chan struct{} {
	return m.quit
}

// Refresh updates the tooltip and menu label after the combination changed
func (m *SystrayManager) Refresh() {
	label := m.actions.CombinationLabel()
	systray.SetTooltip("SonarKey - " + label)
	if m.mCombo != nil {
		m.mCombo.SetTitle("Combination: " + label)
	}
}

// onReady is called when the systray is ready
func (m *SystrayManager) onReady() {
	if len(m.iconData) > 0 {
		systray.SetIcon(m.iconData)
	}
	systray.SetTitle("SonarKey")

	m.mCombo = systray.AddMenuItem("", "Active key combination")
	m.mCombo.Disable()
	m.Refresh()
	systray.AddSeparator()

	mOpenWebUI := systray.AddMenuItem("Open Web UI", "Open the SonarKey dashboard")
	if m.webURL == "" {
		mOpenWebUI.Disable()
	}
	mSelect := systray.AddMenuItem("Select Key", "Use the next key pressed as the extra key")
	mClear := systray.AddMenuItem("Clear Selected Key", "Remove the extra key from the combination")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit SonarKey")

	// Handle menu clicks
	go func() {
		for {
			select {
			case <-mOpenWebUI.ClickedCh:
				m.openWebUI()
			case <-mSelect.ClickedCh:
				if err := m.actions.StartCapture(); err != nil {
					slog.Warn("Failed to start key capture", "error", err)
					continue
				}
				m.mCombo.SetTitle("Press a key...")
			case <-mClear.ClickedCh:
				if err := m.actions.ClearSelectedKey(); err != nil {
					slog.Error("Failed to clear selected key", "error", err)
				}
				m.Refresh()
			case <-mQuit.ClickedCh:
				slog.Info("User requested quit from system tray")
				close(m.quit)
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when the systray is exiting
func (m *SystrayManager) onExit() {
	slog.Info("System tray exited")
}

// openWebUI opens the web UI in the default browser
func (m *SystrayManager) openWebUI() {
	slog.Info("Opening web UI", "url", m.webURL)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", m.webURL)
	case "darwin":
		cmd = exec.Command("open", m.webURL)
	case "linux":
		cmd = exec.Command("xdg-open", m.webURL)
	default:
		slog.Error("Unsupported platform for opening browser", "platform", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		slog.Error("Failed to open web UI", "error", err)
	}
}
