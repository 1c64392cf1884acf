package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TunnelState tracks one forward shown in the TUI
type TunnelState struct {
	LocalPort  int
	RemoteHost string
	RemotePort int
	Open       bool
	Error      string
}

// Model is the bubbletea model for one job session
type Model struct {
	// Configuration
	Cluster string
	JobID   string
	Styles  Styles

	// ShellHint renders the ssh command for a node (optional)
	ShellHint func(node string) string

	// OpenURL opens the local service URL on "o" (optional)
	OpenURL func(url string) error

	// Job state
	Phase     string
	PhaseIcon string
	Native    string
	Resolving bool

	// Endpoint
	Node     string
	URL      string
	LocalURL string
	Tunnels  map[int]*TunnelState
	Error    string

	StartTime time.Time
	Now       time.Time
	LogLines  []string
	LogLimit  int
	ShowLogs  bool
	Width     int
	Height    int

	// Control
	Quitting bool
	Done     bool
}

// NewModel creates a new TUI model for jobID on cluster
func NewModel(cluster, jobID string) *Model {
	now := time.Now()
	return &Model{
		Cluster:   cluster,
		JobID:     jobID,
		Styles:    DefaultStyles(),
		Phase:     "submitted",
		PhaseIcon: IconWaiting,
		Tunnels:   make(map[int]*TunnelState),
		StartTime: now,
		Now:       now,
		LogLimit:  500,
		ShowLogs:  true,
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
	)
}

// TickMsg is sent every second to update the timer
type TickMsg time.Time

// tickCmd returns a command that sends TickMsg every second
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// DoneMsg signals the TUI should exit
type DoneMsg struct{}

// PhaseMsg reports a lifecycle phase change
type PhaseMsg struct {
	Phase  string
	Native string
	Error  string
}

// StateMsg reports one applied poll result
type StateMsg struct {
	State  string
	Native string
}

// ResolvingMsg indicates the job runs and its service is being looked up
type ResolvingMsg struct{}

// EndpointMsg carries the resolved service address
type EndpointMsg struct {
	Node     string
	URL      string
	LocalURL string
	Port     int
}

// ServiceFailedMsg indicates the service address could not be resolved
type ServiceFailedMsg struct {
	Error string
}

// TunnelMsg reports a tunnel opening, closing or failing
type TunnelMsg struct {
	LocalPort  int
	RemoteHost string
	RemotePort int
	Open       bool
	Error      string
}

// OpenResultMsg reports the outcome of opening the service in a browser
type OpenResultMsg struct {
	Error string
}

func openCmd(open func(string) error, url string) tea.Cmd {
	return func() tea.Msg {
		if err := open(url); err != nil {
			return OpenResultMsg{Error: err.Error()}
		}
		return OpenResultMsg{}
	}
}
