package tracker

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/RevCBH/hpctui/internal/scheduler"
)

const (
	DefaultURLAttempts = 30
	DefaultURLDelay    = 2 * time.Second
)

var nodePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Endpoint is the resolved address of the service a job started.
type Endpoint struct {
	Node string `json:"node"`

	// URL is the service URL as printed in the job log
	URL string `json:"url"`

	// LocalURL is URL with its host rewritten to localhost
	LocalURL string `json:"local_url"`

	Port int `json:"port"`
}

// ResolveOptions bounds endpoint resolution.
type ResolveOptions struct {
	// Attempts is how many times the job log is searched (default: 30)
	Attempts int

	// Delay separates attempts (default: 2s)
	Delay time.Duration

	// DefaultPort is used when the service URL carries no port
	DefaultPort int
}

func (o ResolveOptions) withDefaults() ResolveOptions {
	if o.Attempts <= 0 {
		o.Attempts = DefaultURLAttempts
	}
	if o.Delay <= 0 {
		o.Delay = DefaultURLDelay
	}
	return o
}

// Resolve finds the node and service URL of a running job.
func Resolve(ctx context.Context, sched scheduler.Scheduler, jobID string, opts ResolveOptions) (Endpoint, error) {
	return resolve(ctx, nil, sched, jobID, opts.withDefaults())
}

// resolve stops waiting early when stop is closed; a nil stop never fires.
func resolve(ctx context.Context, stop <-chan struct{}, sched scheduler.Scheduler, jobID string, opts ResolveOptions) (Endpoint, error) {
	node := sched.QueryNode(ctx, jobID)
	if !nodePattern.MatchString(node) {
		return Endpoint{}, fmt.Errorf("%w %s", ErrNodeNotFound, jobID)
	}

	serviceURL, err := waitForURL(ctx, stop, sched, jobID, opts)
	if err != nil {
		return Endpoint{Node: node}, err
	}

	local, port := LocalURL(serviceURL, opts.DefaultPort)
	return Endpoint{Node: node, URL: serviceURL, LocalURL: local, Port: port}, nil
}

// waitForURL searches the job log up to opts.Attempts times with a fixed
// delay between attempts.
func waitForURL(ctx context.Context, stop <-chan struct{}, sched scheduler.Scheduler, jobID string, opts ResolveOptions) (string, error) {
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if u, ok := sched.QueryServiceURL(ctx, jobID); ok {
			return u, nil
		}

		if attempt < opts.Attempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-stop:
				return "", context.Canceled
			case <-time.After(opts.Delay):
			}
		}
	}
	return "", ErrServiceNotStarted
}

// LocalURL rewrites the host of serviceURL to localhost and returns the
// service port, falling back to defaultPort when the URL names none.
// Unparsable input is returned unchanged.
func LocalURL(serviceURL string, defaultPort int) (string, int) {
	u, err := url.Parse(serviceURL)
	if err != nil || u.Host == "" {
		return serviceURL, defaultPort
	}

	port := defaultPort
	if p, err := strconv.Atoi(u.Port()); err == nil && p > 0 {
		port = p
	}
	u.Host = net.JoinHostPort("localhost", strconv.Itoa(port))
	return u.String(), port
}
