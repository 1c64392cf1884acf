package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/hpctui/internal/config"
	"github.com/RevCBH/hpctui/internal/remote"
	"github.com/RevCBH/hpctui/internal/testutil"
)

const testConfig = `user:
  username: alice
  email: alice@example.org
tracker:
  poll_interval: 10ms
  url_attempts: 2
  url_delay: 1ms
`

// runCLI runs the root command against stub with a throwaway home directory.
func runCLI(t *testing.T, stub *testutil.StubExecutor, args ...string) (string, error) {
	t.Helper()
	return runCLIContext(t, context.Background(), stub, args...)
}

func runCLIContext(t *testing.T, ctx context.Context, stub *testutil.StubExecutor, args ...string) (string, error) {
	t.Helper()
	return runCLIConfig(t, ctx, stub, testConfig, args...)
}

func runCLIConfig(t *testing.T, ctx context.Context, stub *testutil.StubExecutor, cfg string, args ...string) (string, error) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"HPCTUI_USER", "HPCTUI_EMAIL", "HPCTUI_SSH_COMMAND", "HPCTUI_LOG_LEVEL", "HPCTUI_CLUSTER"} {
		t.Setenv(key, "")
	}

	path := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	app := New()
	app.SetExecutor(stub)

	var out bytes.Buffer
	app.rootCmd.SetOut(&out)
	app.rootCmd.SetErr(io.Discard)
	app.rootCmd.SetArgs(append([]string{"--config", path}, args...))

	err := app.ExecuteContext(ctx)
	return out.String(), err
}

func ok(stdout string) remote.Result {
	return remote.Result{Stdout: stdout}
}

func TestJobs_JSON(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("squeue -u 'alice'", ok(
		"101|gpu-session|RUNNING|gpu03|1:30:00|8:00:00|6:30:00|gpu03\n"+
			"102|train|PENDING||0:00|1-00:00:00|1-00:00:00|(Resources)\n"))

	out, err := runCLI(t, stub, "-c", "conv", "--json", "jobs")
	require.NoError(t, err)

	var jobs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 2)
	assert.Equal(t, "101", jobs[0]["id"])
	assert.Equal(t, "running", jobs[0]["state"])
	assert.Equal(t, float64(90), jobs[0]["elapsed_minutes"])
	assert.Equal(t, "Resources", jobs[1]["reason"])

	assert.Equal(t, "conv", stub.Calls()[0].Host)
}

func TestJobs_StateFilterEmptyIsArray(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("squeue -u", ok("101|gpu-session|RUNNING|gpu03\n"))

	out, err := runCLI(t, stub, "-c", "conv", "--json", "jobs", "--state", "pending")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestJobs_Watch(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("squeue -u", ok("101|gpu-session|RUNNING|gpu03\n"))

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	out, err := runCLIContext(t, ctx, stub, "-c", "conv", "jobs", "--watch", "20ms")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(stub.Calls()), 2)
	assert.GreaterOrEqual(t, strings.Count(out, "Every 20ms: jobs on conv"), 2)
	assert.Contains(t, out, "gpu-session")
}

func TestJobs_WatchKeepsGoingAfterAFailedRefresh(t *testing.T) {
	stub := testutil.NewStubExecutor()
	listing := "squeue -u 'alice' -h -o '%i|%j|%T|%N|%M|%l|%L|%R' 2>/dev/null"
	stub.Stub(listing, remote.Result{ExitCode: 255, Stderr: "Connection reset"})
	stub.StubDefault(listing, ok("101|gpu-session|RUNNING|gpu03\n"))

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	out, err := runCLIContext(t, ctx, stub, "-c", "conv", "jobs", "--watch", "20ms")
	require.NoError(t, err)
	assert.Contains(t, out, "gpu-session")
}

func TestJobs_TransportError(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("squeue -u", remote.Result{ExitCode: 255, Stderr: "ssh: connect to host conv port 22: Connection refused"})

	_, err := runCLI(t, stub, "-c", "conv", "--json", "jobs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Connection refused")
}

func TestJobs_UnknownCluster(t *testing.T) {
	_, err := runCLI(t, testutil.NewStubExecutor(), "-c", "nowhere", "jobs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestNodes_JSONSummary(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("sinfo", ok(
		"NODELIST  CPUS(A/I/O/T)  MEMORY  ALLOCMEM  GRES  GRES_USED  STATE\n"+
			"gpu01  0/64/0/64  512000  0  gpu:a100:4  gpu:a100:0  idle\n"+
			"gpu02  32/32/0/64  512000  256000  gpu:a100:4  gpu:a100:2  mixed\n"+
			"gpu03  64/0/0/64  512000  512000  gpu:a100:4  gpu:a100:4  allocated\n"+
			"gpu04  0/0/64/64  512000  0  gpu:a100:4  gpu:a100:0  drained\n"))

	out, err := runCLI(t, stub, "-c", "conv", "--json", "nodes")
	require.NoError(t, err)

	var got struct {
		Nodes   []map[string]any `json:"nodes"`
		Summary NodeSummary      `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Nodes, 4)
	assert.Equal(t, NodeSummary{Total: 4, Idle: 1, Mixed: 1, Allocated: 1, Down: 1}, got.Summary)
	assert.Contains(t, stub.LastCommand(), "-p 'convergence'")
}

func TestState_JSON(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("squeue -j 42 -h -o '%T'", ok("RUNNING\n"))

	out, err := runCLI(t, stub, "-c", "conv", "--json", "state", "42")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]string{"cluster": "conv", "job": "42", "state": "running", "native": "RUNNING"}, got)
}

func TestState_RejectsBadID(t *testing.T) {
	stub := testutil.NewStubExecutor()
	_, err := runCLI(t, stub, "-c", "conv", "state", "42;reboot")
	require.Error(t, err)
	assert.Empty(t, stub.Calls())
}

func TestCancel(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.Stub("scancel 42", ok(""))

	out, err := runCLI(t, stub, "-c", "conv", "cancel", "42")
	require.NoError(t, err)
	assert.Equal(t, "Cancelled job 42 on conv\n", out)
}

func TestCancel_All(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("oardel", ok(""))

	out, err := runCLI(t, stub, "-c", "hpc", "cancel", "--all")
	require.NoError(t, err)
	assert.Equal(t, "Cancelled all jobs of alice on hpc\n", out)
	assert.Contains(t, stub.LastCommand(), "oarstat -u 'alice'")
}

func TestCancel_NeedsExactlyOneTarget(t *testing.T) {
	stub := testutil.NewStubExecutor()

	_, err := runCLI(t, stub, "-c", "conv", "cancel")
	assert.EqualError(t, err, "give either a job id or --all")

	_, err = runCLI(t, stub, "-c", "conv", "cancel", "--all", "42")
	assert.EqualError(t, err, "give either a job id or --all")

	assert.Empty(t, stub.Calls())
}

func TestCancel_Rejected(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.Stub("scancel 42", remote.Result{ExitCode: 1, Stderr: "scancel: error: Invalid job id specified"})

	_, err := runCLI(t, stub, "-c", "conv", "cancel", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid job id specified")
}

func TestDuration_JSON(t *testing.T) {
	out, err := runCLI(t, testutil.NewStubExecutor(), "--json", "duration", "1d", "6h", "30m")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, float64(1830), got["minutes"])
	assert.Equal(t, "1-06:30:00", got["slurm"])
	assert.Equal(t, "30:30:0", got["oar"])
}

func TestDuration_Invalid(t *testing.T) {
	_, err := runCLI(t, testutil.NewStubExecutor(), "duration", "soon")
	assert.Error(t, err)
}

func TestStatus_ReportsEachCluster(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("squeue -u", ok("101|gpu-session|RUNNING|gpu03\n"))
	stub.StubContains("sinfo", ok("NODELIST CPUS MEMORY ALLOCMEM GRES GRES_USED STATE\n"+
		"gpu01 0/64/0/64 512000 0 gpu:4 gpu:0 idle\n"))
	stub.StubContains("oarstat -u", remote.Result{ExitCode: 255, Stderr: "ssh: Could not resolve hostname hpc"})

	out, err := runCLI(t, stub, "--json", "status")
	require.NoError(t, err)

	var report []ClusterStatus
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report, 2)

	byName := map[string]ClusterStatus{}
	for _, st := range report {
		byName[st.Name] = st
	}

	conv := byName["conv"]
	assert.Empty(t, conv.Error)
	assert.Len(t, conv.Jobs, 1)
	require.NotNil(t, conv.Summary)
	assert.Equal(t, 1, conv.Summary.Idle)

	hpc := byName["hpc"]
	assert.Contains(t, hpc.Error, "Could not resolve hostname")
	assert.Empty(t, hpc.Jobs)
}

func TestStatus_NeedsUsername(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("HPCTUI_USER", "")
	path := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o644))

	app := New()
	app.SetExecutor(testutil.NewStubExecutor())
	app.rootCmd.SetOut(io.Discard)
	app.rootCmd.SetErr(io.Discard)
	app.rootCmd.SetArgs([]string{"--config", path, "status"})

	assert.ErrorIs(t, app.Execute(), ErrNoUsername)
}

func TestSubmit_NoWait(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("sbatch", ok("1234\n"))

	out, err := runCLI(t, stub, "-c", "conv", "--json", "submit", "--no-wait", "--gpus", "2", "--time", "12h")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]string{"cluster": "conv", "job": "1234"}, got)

	command := stub.LastCommand()
	assert.Contains(t, command, "a100_7g.80gb:2")
	assert.Contains(t, command, "12:00:00")
	assert.Contains(t, command, "9888")
}

func TestSubmit_Script(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("sbatch", ok("77\n"))

	out, err := runCLI(t, stub, "-c", "conv", "submit", "--script", "~/train.sh", "--name", "train")
	require.NoError(t, err)
	assert.Equal(t, "Submitted job 77 on conv\n", out)

	command := stub.LastCommand()
	assert.Contains(t, command, "--job-name='train'")
	assert.Contains(t, command, "~/'train.sh'")
	assert.Contains(t, command, "--mail-user='alice@example.org'")
}

func TestSubmit_OARUsesClusterDefaults(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("oarsub", ok("555\n"))

	_, err := runCLI(t, stub, "-c", "hpc", "--json", "submit", "--no-wait")
	require.NoError(t, err)

	command := stub.LastCommand()
	assert.Contains(t, command, "core=24")
	assert.Contains(t, command, "walltime=24:0:0")
}

func TestSubmit_Rejected(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("sbatch", remote.Result{ExitCode: 0, Stderr: "sbatch: error: Invalid generic resource (gres) specification"})

	_, err := runCLI(t, stub, "-c", "conv", "submit", "--no-wait")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid generic resource")
}

func TestSubmit_InvalidName(t *testing.T) {
	stub := testutil.NewStubExecutor()

	_, err := runCLI(t, stub, "-c", "conv", "submit", "--no-wait", "--name", "a b")
	require.Error(t, err)
	assert.Empty(t, stub.Calls())
}

func TestSubmit_TracksUntilTerminal(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("sbatch", ok("1234\n"))
	stub.StubContains("squeue -j 1234 -h -o '%T'", ok("COMPLETED\n"))

	out, err := runCLI(t, stub, "-c", "conv", "--json", "submit")
	require.NoError(t, err)

	assert.Contains(t, out, `"type":"job.submitted"`)
	assert.Contains(t, out, `"type":"job.ended"`)
}

func TestConnect_FailedJob(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("squeue -j 42 -h -o '%T'", ok("NODE_FAIL\n"))

	out, err := runCLI(t, stub, "-c", "conv", "--json", "connect", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job 42 failed (NODE_FAIL)")
	assert.Contains(t, out, `"type":"job.failed"`)
	assert.NotContains(t, out, "job.submitted")
}

func TestConnect_ServiceNeverStarts(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("squeue -j 42 -h -o '%T'", ok("RUNNING\n"))
	stub.StubContains("squeue -j 42 -h -o '%N'", ok("gpu03\n"))
	stub.StubContains("grep -o", ok(""))

	out, err := runCLI(t, stub, "-c", "conv", "--json", "connect", "42", "--no-tunnel")
	require.Error(t, err)
	assert.Contains(t, out, `"type":"job.service.failed"`)

	for _, call := range stub.Calls() {
		assert.NotContains(t, call.Command, "scancel", "tracking must never cancel the job")
	}
}

func TestConnect_OpenAndShellHint(t *testing.T) {
	stub := testutil.NewStubExecutor()
	stub.StubContains("squeue -j 42 -h -o '%T'", ok("RUNNING\n"))
	stub.StubContains("squeue -j 42 -h -o '%N'", ok("gpu03\n"))
	stub.StubContains("grep -o", ok("http://gpu03:9888/lab?token=abc\n"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opened []string
	prev := openURL
	openURL = func(url string) error {
		opened = append(opened, url)
		cancel()
		return nil
	}
	t.Cleanup(func() { openURL = prev })

	out, err := runCLIContext(t, ctx, stub, "-c", "conv", "connect", "42", "--no-tui", "--no-tunnel", "--open")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:9888/lab?token=abc"}, opened)
	assert.Contains(t, out, "shell: ssh -t -J conv gpu03.convergence.lip6.fr")
	assert.Contains(t, out, "Reattach with: hpctui connect -c conv 42")
}

func TestShellHint(t *testing.T) {
	assert.Equal(t, "ssh -t gpu03", shellHint(config.ClusterConfig{}, "gpu03"))
	assert.Equal(t, "ssh -t -J conv gpu03.convergence.lip6.fr",
		shellHint(config.ClusterConfig{ProxyJump: "conv", NodeDomain: "convergence.lip6.fr"}, "gpu03"))
}

func TestBrowserCommand(t *testing.T) {
	assert.Equal(t, "open", browserCommand("darwin"))
	assert.Equal(t, "xdg-open", browserCommand("linux"))
}

func TestConnect_RejectsBadID(t *testing.T) {
	_, err := runCLI(t, testutil.NewStubExecutor(), "-c", "conv", "connect", "abc")
	assert.Error(t, err)
}

func TestShell_Print(t *testing.T) {
	out, err := runCLI(t, testutil.NewStubExecutor(), "-c", "conv", "shell", "--print", "--time", "2h")
	require.NoError(t, err)
	assert.Contains(t, out, "ssh -t conv")
	assert.Contains(t, out, "salloc")
	assert.Contains(t, out, "02:00:00")
}

func TestShell_OARPrint(t *testing.T) {
	out, err := runCLI(t, testutil.NewStubExecutor(), "-c", "hpc", "shell", "--print", "--cores", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "oarsub -l /nodes=1/core=4")
	assert.Contains(t, out, " -I")
}

func TestShell_NeedsTerminal(t *testing.T) {
	stub := testutil.NewStubExecutor()
	_, err := runCLI(t, stub, "-c", "conv", "shell")
	assert.ErrorIs(t, err, ErrNoTerminal)
	assert.Empty(t, stub.Calls())
}
