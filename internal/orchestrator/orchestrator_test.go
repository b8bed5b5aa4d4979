package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakenelson/devdock/internal/alert"
	"github.com/jakenelson/devdock/internal/guard"
	"github.com/jakenelson/devdock/internal/language"
	"github.com/jakenelson/devdock/internal/mounts"
	"github.com/jakenelson/devdock/internal/ports"
	"github.com/jakenelson/devdock/internal/shell"
	"github.com/jakenelson/devdock/internal/workspace"
)

// fakeEngine serves containers and images from in-memory fixtures and
// records removals.
type fakeEngine struct {
	mu         sync.Mutex
	versionErr error
	containers map[string][]string // name filter -> ids
	images     map[string][]string // reference filter -> ids
	dangling   []string
	failRemove map[string]error // id -> error returned by Remove*
	removedC   []string
	removedI   []string
}

func (f *fakeEngine) Version(ctx context.Context) (string, error) {
	if f.versionErr != nil {
		return "", f.versionErr
	}
	return "Docker version 27.5.1", nil
}

func (f *fakeEngine) ListContainers(ctx context.Context, name string) ([]string, error) {
	return append([]string(nil), f.containers[name]...), nil
}

func (f *fakeEngine) RemoveContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failRemove[id]; err != nil {
		return err
	}
	f.removedC = append(f.removedC, id)
	return nil
}

func (f *fakeEngine) ListImages(ctx context.Context, reference string) ([]string, error) {
	return append([]string(nil), f.images[reference]...), nil
}

func (f *fakeEngine) ListDanglingImages(ctx context.Context) ([]string, error) {
	return append([]string(nil), f.dangling...), nil
}

func (f *fakeEngine) RemoveImage(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failRemove[id]; err != nil {
		return err
	}
	f.removedI = append(f.removedI, id)
	return nil
}

func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) removed() (containers, images []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	containers = append([]string(nil), f.removedC...)
	images = append([]string(nil), f.removedI...)
	sort.Strings(containers)
	sort.Strings(images)
	return containers, images
}

// blockingSink holds every Dispatch until release is closed.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	rec     *shell.Recorder
}

func (b *blockingSink) Dispatch(ctx context.Context, session string, plan shell.Plan) ([]shell.Result, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.rec.Dispatch(ctx, session, plan)
}

type fixture struct {
	dir    string
	ws     *workspace.Workspace
	engine *fakeEngine
	sink   *shell.Recorder
	alerts *alert.Recorder
	guard  *guard.Guard
	orch   *Orchestrator
}

func newFixture(t *testing.T, activeFile string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:    dir,
		ws:     workspace.New(filepath.Join(dir, activeFile), ""),
		engine: &fakeEngine{containers: map[string][]string{}, images: map[string][]string{}},
		sink:   shell.NewRecorder(),
		alerts: &alert.Recorder{},
		guard:  guard.New(),
	}
	f.orch = New(Config{
		Workspace: f.ws,
		Engine:    f.engine,
		Sink:      f.sink,
		Ports:     ports.NewAllocator(0, 0, 0),
		Guard:     f.guard,
		Alerts:    f.alerts,
	})
	return f
}

func (f *fixture) writeDockerfile(t *testing.T, lang language.Language, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, lang.DockerfileName())
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOneRunMaterializesDockerfileAndDispatchesPlan(t *testing.T) {
	f := newFixture(t, "main.py")

	outcome, err := f.orch.OneRun(context.Background(), language.Python)
	require.NoError(t, err)
	assert.Equal(t, StateDispatched, outcome.State)
	assert.False(t, f.guard.InProgress("python-dev-image:latest"), "guard must be released")

	dfPath := filepath.Join(f.dir, "python.Dockerfile")
	content, err := os.ReadFile(dfPath)
	require.NoError(t, err)
	assert.Equal(t, language.Python.Template(), string(content))

	dispatches := f.sink.Dispatches()
	require.Len(t, dispatches, 1)
	assert.Equal(t, "python-dev-container", dispatches[0].Session)
	assert.Equal(t, []string{
		"docker build --no-cache -f " + dfPath + " -t python-dev-image:latest .",
		"docker run --name python-dev-container -d python-dev-image:latest",
		"docker logs python-dev-container",
	}, dispatches[0].Plan.Commands())

	alerts := f.alerts.Alerts()
	require.NotEmpty(t, alerts)
	assert.Equal(t, alert.Warn, alerts[0].Level)
	assert.Contains(t, alerts[0].Message, "Not found")
}

func TestOneRunInterpolatesPortsAndVolumes(t *testing.T) {
	f := newFixture(t, "index.js")
	f.writeDockerfile(t, language.Node, "FROM node:18\nEXPOSE 8080 9090\nVOLUME [\"/data\"]\n")

	outcome, err := f.orch.OneRun(context.Background(), language.Node)
	require.NoError(t, err)
	require.Len(t, outcome.Plan, 3)

	run := outcome.Plan[1].Command
	assert.Equal(t, 2, strings.Count(run, "-p "))
	assert.Contains(t, run, ":8080")
	assert.Contains(t, run, ":9090")
	assert.Contains(t, run, "-v ./data:/data")
	assert.True(t, strings.HasSuffix(run, "--name node-dev-container -d node-dev-image:latest"))
}

func TestOneRunRemovesExistingContainersFirst(t *testing.T) {
	f := newFixture(t, "main.go")
	f.writeDockerfile(t, language.Go, "FROM golang:1.20\n")
	f.engine.containers["go-dev-container"] = []string{"old1", "old2"}

	outcome, err := f.orch.OneRun(context.Background(), language.Go)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old1", "old2"}, outcome.Removed)

	containers, images := f.engine.removed()
	assert.Equal(t, []string{"old1", "old2"}, containers)
	assert.Empty(t, images)
}

func TestOneRunRejectedWhileBuildInProgress(t *testing.T) {
	f := newFixture(t, "main.py")
	dfPath := f.writeDockerfile(t, language.Python, "FROM python:3.10-slim\n")
	sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{}), rec: shell.NewRecorder()}
	f.orch.sink = sink

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.orch.OneRun(context.Background(), language.Python)
		firstDone <- err
	}()
	<-sink.entered

	before, err := os.ReadFile(dfPath)
	require.NoError(t, err)

	outcome, err := f.orch.OneRun(context.Background(), language.Python)
	require.NoError(t, err, "rejection is not an error")
	assert.Equal(t, StateRejected, outcome.State)
	assert.Nil(t, outcome.Plan)
	assert.True(t, f.guard.InProgress("python-dev-image:latest"), "first holder keeps the guard")

	after, err := os.ReadFile(dfPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	alerts := f.alerts.Alerts()
	require.NotEmpty(t, alerts)
	last := alerts[len(alerts)-1]
	assert.Equal(t, alert.Warn, last.Level)
	assert.Contains(t, last.Message, "already in progress")

	close(sink.release)
	require.NoError(t, <-firstDone)
	assert.Len(t, sink.rec.Dispatches(), 1, "only the first invocation dispatches")
	assert.False(t, f.guard.InProgress("python-dev-image:latest"))
}

func TestOneRunReleasesGuardOnFailure(t *testing.T) {
	f := newFixture(t, "main.py")
	f.writeDockerfile(t, language.Python, "FROM python\n")
	f.sink.FailAt = 0

	outcome, err := f.orch.OneRun(context.Background(), language.Python)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShellCommandFailure))

	var stepErr *shell.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "build", stepErr.Step.Name)
	assert.Equal(t, StateFailed, outcome.State)
	assert.False(t, f.guard.InProgress("python-dev-image:latest"))

	// A new run acquires the guard again and reaches the sink instead of
	// being rejected.
	_, err = f.orch.OneRun(context.Background(), language.Python)
	assert.True(t, errors.Is(err, ErrShellCommandFailure))
	assert.Len(t, f.sink.Dispatches(), 2)
}

func TestOneRunReleasesGuardOnPlanningError(t *testing.T) {
	f := newFixture(t, "main.py")
	f.writeDockerfile(t, language.Python, "FROM python\nEXPOSE 8080\n")
	alloc := ports.NewAllocator(30000, 30000, 1)
	f.orch.ports = alloc
	busy, err := listenOn(30000)
	if err != nil {
		t.Skipf("port 30000 unavailable for test setup: %v", err)
	}
	defer busy.Close()

	_, err = f.orch.OneRun(context.Background(), language.Python)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPortAllocationFailed))
	assert.False(t, f.guard.InProgress("python-dev-image:latest"))
	assert.Empty(t, f.sink.Dispatches())
}

func TestOneRunIdempotentSidecar(t *testing.T) {
	f := newFixture(t, "index.js")
	df := f.writeDockerfile(t, language.Node, "FROM node:18\nVOLUME /data /cache\n")

	_, err := f.orch.OneRun(context.Background(), language.Node)
	require.NoError(t, err)
	first, err := os.ReadFile(mounts.SidecarPath(df))
	require.NoError(t, err)
	info1, err := os.Stat(mounts.SidecarPath(df))
	require.NoError(t, err)

	_, err = f.orch.OneRun(context.Background(), language.Node)
	require.NoError(t, err)
	second, err := os.ReadFile(mounts.SidecarPath(df))
	require.NoError(t, err)
	info2, err := os.Stat(mounts.SidecarPath(df))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, info1.ModTime(), info2.ModTime())

	dispatches := f.sink.Dispatches()
	require.Len(t, dispatches, 2)
	assert.Equal(t, dispatches[0].Plan[1].Command[strings.Index(dispatches[0].Plan[1].Command, "-v"):],
		dispatches[1].Plan[1].Command[strings.Index(dispatches[1].Plan[1].Command, "-v"):])
}

func TestOneRunUnsupportedLanguage(t *testing.T) {
	f := newFixture(t, "main.py")
	_, err := f.orch.OneRun(context.Background(), language.Language(0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
	assert.Empty(t, f.sink.Dispatches())
}

func TestOneRunNoActiveFile(t *testing.T) {
	f := newFixture(t, "main.py")
	f.orch.workspace = workspace.New("", "")

	_, err := f.orch.OneRun(context.Background(), language.Python)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoActiveFile))
}

func TestRunDockerUnavailable(t *testing.T) {
	f := newFixture(t, "main.py")
	f.engine.versionErr = errors.New("exec: \"docker\": executable file not found in $PATH")

	_, err := f.orch.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDockerUnavailable))
	assert.Empty(t, f.sink.Dispatches())
	_, statErr := os.Stat(filepath.Join(f.dir, "python.Dockerfile"))
	assert.True(t, os.IsNotExist(statErr), "no side effects when Docker is missing")
}

func TestRunDetectsLanguage(t *testing.T) {
	f := newFixture(t, "Main.java")
	f.writeDockerfile(t, language.Java, "FROM openjdk:17\n")

	outcome, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, language.Java, outcome.Spec.Language)
	assert.Equal(t, "java-dev-container", outcome.Spec.ContainerName)
}

func TestClean(t *testing.T) {
	f := newFixture(t, "main.go")
	f.engine.containers["go-dev-container"] = []string{"c1", "c2", "c3"}
	f.engine.containers["python-dev-container"] = []string{"p1"}
	f.engine.images["go-dev-image:latest"] = []string{"img-go"}
	f.engine.images["python-dev-image:latest"] = []string{"img-py"}
	f.engine.dangling = []string{"img-dangling"}

	report, err := f.orch.Clean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, language.Go, report.Language)
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, report.Containers)
	assert.Equal(t, []string{"img-go", "img-dangling"}, report.Images)

	containers, images := f.engine.removed()
	assert.Equal(t, []string{"c1", "c2", "c3"}, containers)
	assert.Equal(t, []string{"img-dangling", "img-go"}, images)
	assert.NotContains(t, containers, "p1")
	assert.NotContains(t, images, "img-py")

	var deleted int
	for _, a := range f.alerts.Alerts() {
		if strings.HasPrefix(a.Message, "Deleted ") {
			deleted++
		}
	}
	assert.Equal(t, 5, deleted)
}

func TestCleanKeepsPartialRemovals(t *testing.T) {
	f := newFixture(t, "main.go")
	boom := errors.New("boom")
	f.engine.containers["go-dev-container"] = []string{"c1", "c2", "c3"}
	f.engine.failRemove = map[string]error{"c2": boom}

	report, err := f.orch.Clean(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	require.NotNil(t, report)
	assert.Equal(t, []string{"c1", "c3"}, report.Containers)

	containers, _ := f.engine.removed()
	assert.Equal(t, []string{"c1", "c3"}, containers)

	var deleted []string
	for _, a := range f.alerts.Alerts() {
		deleted = append(deleted, a.Message)
	}
	assert.ElementsMatch(t, []string{"Deleted container: c1", "Deleted container: c3"}, deleted)
}

func TestRemoveAllJoinsErrors(t *testing.T) {
	errA, errB := errors.New("a failed"), errors.New("b failed")
	fail := map[string]error{"a": errA, "b": errB}

	removed, err := removeAll(context.Background(), []string{"a", "b", "c", "d"}, func(ctx context.Context, id string) error {
		return fail[id]
	})
	assert.Equal(t, []string{"c", "d"}, removed)
	assert.True(t, errors.Is(err, errA))
	assert.True(t, errors.Is(err, errB))

	removed, err = removeAll(context.Background(), []string{"x", "y"}, func(ctx context.Context, id string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, removed)
}

func TestCleanDedupesImages(t *testing.T) {
	f := newFixture(t, "main.go")
	f.engine.images["go-dev-image:latest"] = []string{"same"}
	f.engine.dangling = []string{"same"}

	report, err := f.orch.Clean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"same"}, report.Images)
}

func TestLogs(t *testing.T) {
	f := newFixture(t, "server.ts")

	require.NoError(t, f.orch.Logs(context.Background(), true))
	require.NoError(t, f.orch.Logs(context.Background(), false))

	dispatches := f.sink.Dispatches()
	require.Len(t, dispatches, 2)
	assert.Equal(t, []string{"docker logs -f typescript-dev-container"}, dispatches[0].Plan.Commands())
	assert.Equal(t, []string{"docker logs typescript-dev-container"}, dispatches[1].Plan.Commands())
	assert.False(t, f.guard.InProgress("typescript-dev-image:latest"))
}

func TestCheck(t *testing.T) {
	f := newFixture(t, "main.go")
	version, err := f.orch.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Docker version 27.5.1", version)

	f.engine.versionErr = errors.New("boom")
	_, err = f.orch.Check(context.Background())
	assert.True(t, errors.Is(err, ErrDockerUnavailable))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "GuardCheck", StateGuardCheck.String())
	assert.Equal(t, "Rejected", StateRejected.String())
	assert.Equal(t, "Unknown", State(99).String())
}
