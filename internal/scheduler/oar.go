package scheduler

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/RevCBH/hpctui/internal/duration"
)

const oarIDPattern = `s/.*OAR_JOB_ID=\([0-9][0-9]*\).*/\1/p`

var (
	oarHeaderPattern = regexp.MustCompile(`^\s*Job_Id\s*:\s*(\d+)`)
	oarCoresPattern  = regexp.MustCompile(`core=(\d+)`)
)

// OAR drives an OAR cluster.
type OAR struct {
	client

	// now is replaced in tests
	now func() time.Time
}

func (o *OAR) Kind() Kind { return KindOAR }

func (o *OAR) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

func (o *OAR) ListJobs(ctx context.Context, owner string) ([]Job, error) {
	r := o.run(ctx, fmt.Sprintf("oarstat -u %s -f 2>/dev/null", quote(owner)))
	if err := listResult("oarstat", r); err != nil {
		return nil, err
	}
	return ParseOarstat(r.Stdout, o.clock()), nil
}

// oarRecord accumulates the fields of one "oarstat -f" block.
type oarRecord struct {
	id        string
	name      string
	state     string
	walltime  string
	startTime string
	node      string
	cores     string
}

// ParseOarstat parses the block format of "oarstat -f". Each "Job_Id: N"
// header starts a record; "key = value" lines fill it until the next header
// or the end of input. Lines before the first header are ignored.
func ParseOarstat(text string, now time.Time) []Job {
	var (
		jobs    []Job
		current *oarRecord
	)
	flush := func() {
		if current != nil && current.id != "" {
			jobs = append(jobs, current.job(now))
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if m := oarHeaderPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = &oarRecord{id: m[1]}
			continue
		}
		if current == nil {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "name":
			current.name = value
		case "state":
			current.state = value
		case "walltime":
			current.walltime = value
		case "startTime":
			current.startTime = value
		case "assigned_hostnames":
			current.node = value
		case "wanted_resources":
			if m := oarCoresPattern.FindStringSubmatch(value); m != nil {
				current.cores = m[1]
			}
		}
	}
	flush()
	return jobs
}

func (r *oarRecord) job(now time.Time) Job {
	job := Job{
		ID:     r.id,
		Name:   r.name,
		Native: r.state,
		State:  oarStates.normalize(r.state),
		Node:   r.node,
	}
	if r.cores != "" {
		job.Resources = r.cores + " cores"
	}

	elapsed, hasElapsed := oarElapsed(r.startTime, now)
	if hasElapsed {
		job.Elapsed = durationPtr(elapsed)
	}
	walltime, hasWalltime := oarWalltime(r.walltime)
	if hasWalltime {
		job.TimeLimit = durationPtr(walltime)
	}
	if hasElapsed && hasWalltime {
		job.TimeRemaining = durationPtr(max(0, walltime-elapsed))
	}
	return job
}

// oarElapsed derives whole elapsed minutes from a startTime epoch. A zero or
// unparsable start means the job has not started.
func oarElapsed(startTime string, now time.Time) (duration.Duration, bool) {
	ts, err := strconv.ParseInt(startTime, 10, 64)
	if err != nil || ts <= 0 {
		return 0, false
	}
	minutes := (now.Unix() - ts) / 60
	return duration.Duration(max(0, minutes)), true
}

// oarWalltime reads the hours and minutes of an H:M[:S] walltime.
func oarWalltime(walltime string) (duration.Duration, bool) {
	parts := strings.Split(walltime, ":")
	if len(parts) < 2 {
		return 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || h < 0 {
		return 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || m < 0 {
		return 0, false
	}
	return duration.Duration(h)*duration.Hour + duration.Duration(m), true
}

// ListNodes returns nothing: OAR exposes no node table here.
func (o *OAR) ListNodes(ctx context.Context) ([]Node, error) {
	return nil, nil
}

func (o *OAR) validate(req SubmitRequest) error {
	switch {
	case req.Resources.Cores < 1:
		return fmt.Errorf("%w: at least one core is required", ErrInvalidRequest)
	case req.Time <= 0:
		return fmt.Errorf("%w: walltime must be positive", ErrInvalidRequest)
	}
	return nil
}

func (o *OAR) resourceSpec(req SubmitRequest) string {
	return fmt.Sprintf("/nodes=1/core=%d,walltime=%s", req.Resources.Cores, req.Time.OAR())
}

func (o *OAR) property() string {
	if o.opts.Property == "" {
		return ""
	}
	return " -p " + quote(o.opts.Property)
}

func (o *OAR) SubmitInteractive(ctx context.Context, req SubmitRequest) (string, error) {
	if err := o.validate(req); err != nil {
		return "", err
	}
	if req.ServicePort < 1 {
		return "", fmt.Errorf("%w: service port is required", ErrInvalidRequest)
	}

	body, err := o.opts.Scripts.Render(ScriptOARNotebook, ScriptData{
		Name:     req.Name,
		Email:    req.Email,
		Time:     req.Time.OAR(),
		Port:     req.ServicePort,
		Cores:    req.Resources.Cores,
		Property: o.opts.Property,
	})
	if err != nil {
		return "", err
	}

	command := uploadAndSubmit(body, "hpctui_oar", captureID("oarsub -S {script}", oarIDPattern))
	id, err := submitResult("oarsub", o.run(ctx, command))
	if err != nil {
		return "", err
	}
	o.logger.Info("job submitted", "job", id, "mode", "interactive", "script", o.opts.Scripts.Source(ScriptOARNotebook))
	return id, nil
}

func (o *OAR) SubmitScript(ctx context.Context, req SubmitRequest) (string, error) {
	if err := o.validate(req); err != nil {
		return "", err
	}
	if req.ScriptPath == "" {
		return "", fmt.Errorf("%w: script path is required", ErrInvalidRequest)
	}

	submit := fmt.Sprintf("oarsub -l %s%s", o.resourceSpec(req), o.property())
	if req.Name != "" {
		submit += " -n " + quote(req.Name)
	}
	if req.Email != "" {
		submit += " --notify " + quote("mail:"+req.Email)
	}
	submit += " -S " + quotePath(req.ScriptPath)
	id, err := submitResult("oarsub", o.run(ctx, captureID(submit, oarIDPattern)))
	if err != nil {
		return "", err
	}
	o.logger.Info("job submitted", "job", id, "mode", "script", "script", req.ScriptPath)
	return id, nil
}

func (o *OAR) Cancel(ctx context.Context, jobID string) error {
	if !IsJobID(jobID) {
		return fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}
	return cancelResult("oardel", o.run(ctx, "oardel "+jobID))
}

func (o *OAR) CancelAll(ctx context.Context, owner string) error {
	command := fmt.Sprintf(
		"for jid in $(oarstat -u %s 2>/dev/null | awk '/^[0-9]/{print $1}'); do oardel $jid; done",
		quote(owner))
	return cancelResult("oardel", o.run(ctx, command))
}

func (o *OAR) QueryState(ctx context.Context, jobID string) Status {
	if !IsJobID(jobID) {
		return Status{State: StateUnknown}
	}
	r := o.run(ctx, fmt.Sprintf(
		"oarstat -f -j %s 2>/dev/null | grep 'state =' | head -1 | awk -F= '{print $2}' | tr -d ' '", jobID))
	native := firstLine(r.Stdout)
	return Status{State: oarStates.normalize(native), Native: native}
}

func (o *OAR) QueryNode(ctx context.Context, jobID string) string {
	if !IsJobID(jobID) {
		return ""
	}
	r := o.run(ctx, fmt.Sprintf(
		"oarstat -f -j %s 2>/dev/null | grep 'assigned_hostnames' | awk '{print $3}'", jobID))
	return firstLine(r.Stdout)
}

func (o *OAR) QueryServiceURL(ctx context.Context, jobID string) (string, bool) {
	if !IsJobID(jobID) {
		return "", false
	}
	r := o.run(ctx, fmt.Sprintf("grep -o 'http://[^ ]*' ~/OAR.%s.stderr 2>/dev/null | tail -1", jobID))
	return lastURL(r.Stdout)
}

func (o *OAR) InteractiveCommand(req SubmitRequest) string {
	return fmt.Sprintf("oarsub -l %s%s -I", o.resourceSpec(req), o.property())
}
