package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/RevCBH/hpctui/internal/duration"
	"github.com/RevCBH/hpctui/internal/events"
	"github.com/RevCBH/hpctui/internal/scheduler"
)

// StateSymbol is the marker printed before a job state
type StateSymbol string

const (
	SymbolRunning   StateSymbol = "●"
	SymbolPending   StateSymbol = "○"
	SymbolCompleted StateSymbol = "✓"
	SymbolFailed    StateSymbol = "✗"
	SymbolUnknown   StateSymbol = "?"
)

// GetStateSymbol returns the symbol for a normalized job state
func GetStateSymbol(state scheduler.State) StateSymbol {
	switch state {
	case scheduler.StateRunning, scheduler.StateFinishing:
		return SymbolRunning
	case scheduler.StatePending:
		return SymbolPending
	case scheduler.StateCompleted:
		return SymbolCompleted
	case scheduler.StateFailed, scheduler.StateCancelled, scheduler.StateTimedOut:
		return SymbolFailed
	default:
		return SymbolUnknown
	}
}

// displayJobs renders a list of jobs in tabular format using tabwriter.
// Columns: ID, Name, State, Node, Elapsed, Limit, Left, Reason/Resources
func displayJobs(out io.Writer, jobs []scheduler.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME\tSTATE\tNODE\tELAPSED\tLIMIT\tLEFT\tINFO")
	for _, job := range jobs {
		info := job.Reason
		if info == "" {
			info = job.Resources
		}
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%s\t%s\t%s\n",
			job.ID,
			truncate(job.Name, 20),
			GetStateSymbol(job.State),
			job.Native,
			orDash(job.Node),
			formatMinutes(job.Elapsed),
			formatMinutes(job.TimeLimit),
			formatMinutes(job.TimeRemaining),
			orDash(info),
		)
	}
}

// displayNodes renders the node table followed by the summary line.
func displayNodes(out io.Writer, nodes []scheduler.Node) {
	if len(nodes) == 0 {
		fmt.Fprintln(out, "No node information for this cluster")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tCPUS (A/I/O/T)\tMEMORY\tALLOCATED\tGRES\tGRES USED\tSTATE")
	for _, n := range nodes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			n.Name,
			n.CPUState,
			formatMemory(n.MemoryTotal),
			formatMemory(n.MemoryAllocated),
			n.Resources,
			n.ResourcesUsed,
			n.State,
		)
	}
	w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, summarizeNodes(nodes))
}

// NodeSummary counts nodes by coarse state
type NodeSummary struct {
	Total     int `json:"total"`
	Idle      int `json:"idle"`
	Mixed     int `json:"mixed"`
	Allocated int `json:"allocated"`
	Down      int `json:"down"`
}

// summarizeNodes buckets node states the way sinfo spells them.
// A state counts as down when it mentions down or drain.
func summarizeNodes(nodes []scheduler.Node) NodeSummary {
	s := NodeSummary{Total: len(nodes)}
	for _, n := range nodes {
		state := strings.ToLower(n.State)
		switch {
		case strings.Contains(state, "idle"):
			s.Idle++
		case strings.Contains(state, "mix"):
			s.Mixed++
		case strings.Contains(state, "alloc"):
			s.Allocated++
		}
		if strings.Contains(state, "down") || strings.Contains(state, "drain") {
			s.Down++
		}
	}
	return s
}

func (s NodeSummary) String() string {
	return fmt.Sprintf("%d nodes: %d idle, %d mixed, %d allocated, %d down/drain",
		s.Total, s.Idle, s.Mixed, s.Allocated, s.Down)
}

// formatMemory renders a megabyte count from sinfo as IEC bytes.
// Anything that is not a plain number is returned unchanged.
func formatMemory(mb string) string {
	v, err := strconv.ParseUint(strings.TrimSpace(mb), 10, 64)
	if err != nil {
		return mb
	}
	return humanize.IBytes(v * 1024 * 1024)
}

func formatMinutes(d *duration.Duration) string {
	if d == nil {
		return "-"
	}
	return d.Human()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// displayEvent renders a lifecycle event as one line of text.
func displayEvent(out io.Writer, e events.Event) {
	timestamp := e.Time.Format(time.TimeOnly)
	payload, _ := e.Payload.(map[string]any)

	var msg string
	switch e.Type {
	case events.JobSubmitted:
		msg = fmt.Sprintf("Job %s submitted to %s", e.Job, e.Cluster)
	case events.JobPending:
		msg = fmt.Sprintf("Job %s pending", e.Job)
	case events.JobRunning:
		msg = fmt.Sprintf("Job %s running", e.Job)
	case events.JobState:
		// per-poll noise
		return
	case events.EndpointResolving:
		msg = "Waiting for the service to start..."
	case events.EndpointReady:
		msg = fmt.Sprintf("Service ready on %v: %v", payload["node"], payload["local_url"])
	case events.ServiceFailed:
		msg = fmt.Sprintf("Service failed: %s", e.Error)
	case events.JobEnded:
		msg = fmt.Sprintf("Job %s ended", e.Job)
	case events.JobFailed:
		msg = fmt.Sprintf("Job %s failed - %s", e.Job, e.Error)
	case events.JobCancelled:
		msg = fmt.Sprintf("Job %s cancelled", e.Job)
	case events.JobTimedOut:
		msg = fmt.Sprintf("Job %s hit its time limit", e.Job)
	case events.JobAbandoned:
		msg = fmt.Sprintf("Stopped tracking job %s (still on the cluster)", e.Job)
	case events.TunnelOpened:
		msg = fmt.Sprintf("Tunnel open: localhost:%v -> %v:%v", payload["local_port"], payload["remote_host"], payload["remote_port"])
	case events.TunnelClosed:
		msg = fmt.Sprintf("Tunnel closed: localhost:%v", payload["local_port"])
	case events.TunnelFailed:
		msg = fmt.Sprintf("Tunnel failed: %s", e.Error)
	default:
		msg = fmt.Sprintf("%s: %s", e.Type, e.Job)
	}

	fmt.Fprintf(out, "[%s] %s\n", timestamp, msg)
}
