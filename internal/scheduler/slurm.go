package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/RevCBH/hpctui/internal/duration"
)

const (
	// squeueFormat yields id|name|state|nodes|elapsed|limit|left|reason
	squeueFormat = "%i|%j|%T|%N|%M|%l|%L|%R"
	squeueFields = 8

	// squeueMinFields is the shortest line still kept as a partial record
	squeueMinFields = 4

	sinfoFormat = "nodelist:10,cpusstate:16,memory:10,allocmem:10,gres:35,gresused:35,statelong:12"
	sinfoFields = 7

	slurmIDPattern = `s/.*Submitted batch job \([0-9][0-9]*\).*/\1/p`
)

// Slurm drives a SLURM cluster.
type Slurm struct {
	client
}

func (s *Slurm) Kind() Kind { return KindSlurm }

func (s *Slurm) ListJobs(ctx context.Context, owner string) ([]Job, error) {
	r := s.run(ctx, fmt.Sprintf("squeue -u %s -h -o '%s' 2>/dev/null", quote(owner), squeueFormat))
	if err := listResult("squeue", r); err != nil {
		return nil, err
	}
	return ParseSqueue(r.Stdout), nil
}

// ParseSqueue parses pipe-delimited squeue output. Lines with fewer than
// four fields are dropped; lines with four to seven fields keep what they have.
func ParseSqueue(text string) []Job {
	var jobs []Job
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < squeueMinFields {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		job := Job{
			ID:     parts[0],
			Name:   parts[1],
			Native: parts[2],
			State:  slurmStates.normalize(parts[2]),
			Node:   parts[3],
		}
		if len(parts) >= squeueFields {
			job.Elapsed = clock(parts[4])
			job.TimeLimit = clock(parts[5])
			job.TimeRemaining = clock(parts[6])
			if job.State != StateRunning {
				job.Reason = strings.Trim(parts[7], "()")
			}
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func clock(s string) *duration.Duration {
	if d, ok := duration.ParseClock(s); ok {
		return &d
	}
	return nil
}

func (s *Slurm) ListNodes(ctx context.Context) ([]Node, error) {
	partition := ""
	if s.opts.Partition != "" {
		partition = "-p " + quote(s.opts.Partition) + " "
	}
	r := s.run(ctx, fmt.Sprintf("sinfo %s--Node -O '%s' 2>/dev/null", partition, sinfoFormat))
	if err := listResult("sinfo", r); err != nil {
		return nil, err
	}
	return ParseSinfo(r.Stdout), nil
}

// ParseSinfo parses the whitespace-aligned sinfo node table. The first line is
// a header; rows with fewer than seven columns are dropped.
func ParseSinfo(text string) []Node {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return nil
	}
	var nodes []Node
	for _, line := range lines[1:] {
		parts := strings.Fields(line)
		if len(parts) < sinfoFields {
			continue
		}
		nodes = append(nodes, Node{
			Name:            parts[0],
			CPUState:        parts[1],
			MemoryTotal:     parts[2],
			MemoryAllocated: parts[3],
			Resources:       parts[4],
			ResourcesUsed:   parts[5],
			State:           parts[6],
		})
	}
	return nodes
}

func (s *Slurm) validate(req SubmitRequest) error {
	switch {
	case req.Resources.GPUType == "":
		return fmt.Errorf("%w: gpu type is required", ErrInvalidRequest)
	case req.Resources.GPUs < 1:
		return fmt.Errorf("%w: at least one gpu is required", ErrInvalidRequest)
	case req.Time <= 0:
		return fmt.Errorf("%w: time limit must be positive", ErrInvalidRequest)
	case req.Name == "":
		return fmt.Errorf("%w: job name is required", ErrInvalidRequest)
	}
	return nil
}

func (s *Slurm) SubmitInteractive(ctx context.Context, req SubmitRequest) (string, error) {
	if err := s.validate(req); err != nil {
		return "", err
	}
	if req.ServicePort < 1 {
		return "", fmt.Errorf("%w: service port is required", ErrInvalidRequest)
	}

	body, err := s.opts.Scripts.Render(ScriptSlurmNotebook, ScriptData{
		Name:    req.Name,
		Email:   req.Email,
		Time:    req.Time.Slurm(),
		Port:    req.ServicePort,
		GPUType: req.Resources.GPUType,
		GPUs:    req.Resources.GPUs,
	})
	if err != nil {
		return "", err
	}

	command := uploadAndSubmit(body, "hpctui_slurm", captureID("sbatch {script}", slurmIDPattern))
	id, err := submitResult("sbatch", s.run(ctx, command))
	if err != nil {
		return "", err
	}
	s.logger.Info("job submitted", "job", id, "mode", "interactive", "script", s.opts.Scripts.Source(ScriptSlurmNotebook))
	return id, nil
}

func (s *Slurm) SubmitScript(ctx context.Context, req SubmitRequest) (string, error) {
	if err := s.validate(req); err != nil {
		return "", err
	}
	if req.ScriptPath == "" {
		return "", fmt.Errorf("%w: script path is required", ErrInvalidRequest)
	}

	args := []string{
		"sbatch",
		"--job-name=" + quote(req.Name),
		"--nodes=1",
		"--gpus-per-node=" + quote(fmt.Sprintf("%s:%d", req.Resources.GPUType, req.Resources.GPUs)),
		"--time=" + quote(req.Time.Slurm()),
	}
	if req.Email != "" {
		args = append(args, "--mail-type=ALL", "--mail-user="+quote(req.Email))
	}
	args = append(args, "--output=%x-%j.out", "--error=%x-%j.err", quotePath(req.ScriptPath))

	id, err := submitResult("sbatch", s.run(ctx, captureID(strings.Join(args, " "), slurmIDPattern)))
	if err != nil {
		return "", err
	}
	s.logger.Info("job submitted", "job", id, "mode", "script", "script", req.ScriptPath)
	return id, nil
}

func (s *Slurm) Cancel(ctx context.Context, jobID string) error {
	if !IsJobID(jobID) {
		return fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}
	return cancelResult("scancel", s.run(ctx, "scancel "+jobID))
}

func (s *Slurm) CancelAll(ctx context.Context, owner string) error {
	return cancelResult("scancel", s.run(ctx, "scancel -u "+quote(owner)))
}

// QueryState asks squeue first; jobs that already left the queue are looked
// up in sacct.
func (s *Slurm) QueryState(ctx context.Context, jobID string) Status {
	if !IsJobID(jobID) {
		return Status{State: StateUnknown}
	}
	native := firstLine(s.run(ctx, fmt.Sprintf("squeue -j %s -h -o '%%T' 2>/dev/null", jobID)).Stdout)
	if native == "" {
		r := s.run(ctx, fmt.Sprintf("sacct -j %s --format=State -X --noheader 2>/dev/null | tr -d ' '", jobID))
		native = firstLine(r.Stdout)
	}
	return Status{State: slurmStates.normalize(native), Native: native}
}

func (s *Slurm) QueryNode(ctx context.Context, jobID string) string {
	if !IsJobID(jobID) {
		return ""
	}
	return firstLine(s.run(ctx, fmt.Sprintf("squeue -j %s -h -o '%%N' 2>/dev/null", jobID)).Stdout)
}

func (s *Slurm) QueryServiceURL(ctx context.Context, jobID string) (string, bool) {
	if !IsJobID(jobID) {
		return "", false
	}
	r := s.run(ctx, fmt.Sprintf("grep -o 'http://[^ ]*' ~/*-%s.err 2>/dev/null | tail -1", jobID))
	return lastURL(r.Stdout)
}

func (s *Slurm) InteractiveCommand(req SubmitRequest) string {
	return fmt.Sprintf("salloc --job-name=%s --nodes=1 --gpus-per-node=%s --time=%s",
		quote(req.Name),
		quote(fmt.Sprintf("%s:%d", req.Resources.GPUType, req.Resources.GPUs)),
		quote(req.Time.Slurm()))
}
