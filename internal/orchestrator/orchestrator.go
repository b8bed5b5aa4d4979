// Package orchestrator sequences the Dockerfile, build, run, logs and cleanup
// steps for a language's development container.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jakenelson/devdock/internal/alert"
	"github.com/jakenelson/devdock/internal/container"
	"github.com/jakenelson/devdock/internal/dockerfile"
	"github.com/jakenelson/devdock/internal/guard"
	"github.com/jakenelson/devdock/internal/language"
	"github.com/jakenelson/devdock/internal/logging"
	"github.com/jakenelson/devdock/internal/mounts"
	"github.com/jakenelson/devdock/internal/ports"
	"github.com/jakenelson/devdock/internal/shell"
	"github.com/jakenelson/devdock/internal/workspace"
)

const subsystem = "Orchestrator"

// removeConcurrency bounds parallel rm/rmi calls during a sweep.
const removeConcurrency = 4

// Workspace is what the orchestrator needs to know about the active file.
type Workspace interface {
	ActiveDir() (string, error)
	DetectLanguage() (language.Language, error)
	FileExists(path string) bool
	MakeDockerfile(lang language.Language, force bool) (string, error)
}

// ContainerSpec names everything a language's environment uses.
type ContainerSpec struct {
	Language       language.Language
	ImageName      string
	ContainerName  string
	DockerfilePath string
	WorkDir        string
}

// NewContainerSpec derives the spec for lang rooted at workDir.
func NewContainerSpec(lang language.Language, workDir string) ContainerSpec {
	return ContainerSpec{
		Language:       lang,
		ImageName:      lang.ImageName(),
		ContainerName:  lang.ContainerName(),
		DockerfilePath: filepath.Join(workDir, lang.DockerfileName()),
		WorkDir:        workDir,
	}
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Workspace Workspace
	Engine    container.Engine
	Sink      shell.Sink
	Ports     *ports.Allocator
	Guard     *guard.Guard
	Alerts    alert.Notifier

	// Binary is the container CLI used in dispatched commands.
	Binary string
	// MemoryLimit is passed to `docker run --memory` when set.
	MemoryLimit string
}

// Orchestrator drives build/run/logs/clean for the active workspace.
type Orchestrator struct {
	workspace   Workspace
	engine      container.Engine
	sink        shell.Sink
	ports       *ports.Allocator
	guard       *guard.Guard
	alerts      alert.Notifier
	binary      string
	memoryLimit string
}

// New returns an orchestrator. A nil Guard or Ports gets a fresh default.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		workspace:   cfg.Workspace,
		engine:      cfg.Engine,
		sink:        cfg.Sink,
		ports:       cfg.Ports,
		guard:       cfg.Guard,
		alerts:      cfg.Alerts,
		binary:      cfg.Binary,
		memoryLimit: cfg.MemoryLimit,
	}
	if o.ports == nil {
		o.ports = ports.NewAllocator(0, 0, 0)
	}
	if o.guard == nil {
		o.guard = guard.New()
	}
	if o.alerts == nil {
		o.alerts = alert.NewConsole()
	}
	if o.binary == "" {
		o.binary = container.DefaultBinary
	}
	return o
}

// RunOutcome reports how a run invocation ended.
type RunOutcome struct {
	State   State
	Spec    ContainerSpec
	Plan    shell.Plan
	Results []shell.Result
	// Removed lists containers cleared before the build.
	Removed []string
}

// CleanReport lists what a sweep removed.
type CleanReport struct {
	Language   language.Language
	Containers []string
	Images     []string
}

// Check probes the container engine.
func (o *Orchestrator) Check(ctx context.Context) (string, error) {
	version, err := o.engine.Version(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
	}
	logging.Debug(subsystem, "Docker available: %s", version)
	return version, nil
}

// Run checks Docker, detects the language of the active file and runs it.
func (o *Orchestrator) Run(ctx context.Context) (*RunOutcome, error) {
	if _, err := o.Check(ctx); err != nil {
		return nil, err
	}
	lang, err := o.workspace.DetectLanguage()
	if err != nil {
		return nil, err
	}
	return o.OneRun(ctx, lang)
}

// OneRun builds and starts the development container for lang, then tails
// its logs. When a build for the same image is already in progress the call
// is rejected with a warning and no side effects; the returned error is nil.
func (o *Orchestrator) OneRun(ctx context.Context, lang language.Language) (*RunOutcome, error) {
	spec, err := o.spec(lang)
	if err != nil {
		return nil, err
	}
	outcome := &RunOutcome{State: StateIdle, Spec: spec}

	o.transition(outcome, StateGuardCheck)
	release, ok := o.guard.TryAcquire(spec.ImageName)
	if !ok {
		o.transition(outcome, StateRejected)
		o.alerts.Notify(alert.Warn, fmt.Sprintf("A build of %s is already in progress", spec.ImageName))
		return outcome, nil
	}
	o.transition(outcome, StateGuardAcquired)
	defer func() {
		release()
		logging.Debug(subsystem, "[%s] %s", spec.ImageName, StateGuardReleased)
	}()

	if err := o.dispatchRun(ctx, spec, outcome); err != nil {
		o.transition(outcome, StateFailed)
		return outcome, err
	}
	return outcome, nil
}

func (o *Orchestrator) dispatchRun(ctx context.Context, spec ContainerSpec, outcome *RunOutcome) error {
	removed, err := o.removeContainers(ctx, spec.ContainerName)
	outcome.Removed = removed
	if err != nil {
		return err
	}

	if err := o.ensureDockerfile(spec); err != nil {
		return err
	}
	o.transition(outcome, StateDockerfileEnsured)

	o.transition(outcome, StatePlanning)
	plan, err := o.runPlan(spec)
	if err != nil {
		return err
	}
	outcome.Plan = plan

	results, err := o.sink.Dispatch(ctx, spec.ContainerName, plan)
	outcome.Results = results
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShellCommandFailure, err)
	}
	o.transition(outcome, StateDispatched)
	return nil
}

func (o *Orchestrator) ensureDockerfile(spec ContainerSpec) error {
	if o.workspace.FileExists(spec.DockerfilePath) {
		return nil
	}

	o.alerts.Notify(alert.Warn, fmt.Sprintf("Not found %s, creating it from the %s template", spec.DockerfilePath, spec.Language))
	if _, err := o.workspace.MakeDockerfile(spec.Language, false); err != nil && !errors.Is(err, workspace.ErrDockerfileExists) {
		return fmt.Errorf("failed to create Dockerfile: %w", err)
	}
	return nil
}

// runPlan assembles build, run and logs for spec. Port and volume options
// are recomputed from the Dockerfile every time.
func (o *Orchestrator) runPlan(spec ContainerSpec) (shell.Plan, error) {
	desc := dockerfile.ParseFile(spec.DockerfilePath)

	portOpts, err := o.ports.Options(desc.Ports)
	if err != nil {
		return nil, fmt.Errorf("failed to map ports: %w", err)
	}
	volumeOpts, err := mounts.Options(spec.DockerfilePath, desc.Volumes)
	if err != nil {
		return nil, fmt.Errorf("failed to map volumes: %w", err)
	}

	runCmd, err := container.RunCommand(container.RunOptions{
		Binary:        o.binary,
		Image:         spec.ImageName,
		Name:          spec.ContainerName,
		PortOptions:   portOpts,
		VolumeOptions: volumeOpts,
		MemoryLimit:   o.memoryLimit,
	})
	if err != nil {
		return nil, err
	}

	return shell.Plan{
		{
			Name: "build",
			Command: container.BuildCommand(container.BuildOptions{
				Binary:     o.binary,
				Dockerfile: spec.DockerfilePath,
				Tag:        spec.ImageName,
				NoCache:    true,
			}),
		},
		{Name: "run", Command: runCmd},
		{Name: "logs", Command: container.LogsCommand(o.binary, spec.ContainerName, false)},
	}, nil
}

// Logs dispatches `docker logs` for the active language's container.
func (o *Orchestrator) Logs(ctx context.Context, follow bool) error {
	if _, err := o.Check(ctx); err != nil {
		return err
	}
	lang, err := o.workspace.DetectLanguage()
	if err != nil {
		return err
	}
	spec, err := o.spec(lang)
	if err != nil {
		return err
	}

	plan := shell.Plan{{Name: "logs", Command: container.LogsCommand(o.binary, spec.ContainerName, follow)}}
	if _, err := o.sink.Dispatch(ctx, spec.ContainerName, plan); err != nil {
		return fmt.Errorf("%w: %w", ErrShellCommandFailure, err)
	}
	return nil
}

// Clean removes every container matching the language's container name,
// then every image matching its image name plus all dangling images.
func (o *Orchestrator) Clean(ctx context.Context) (*CleanReport, error) {
	if _, err := o.Check(ctx); err != nil {
		return nil, err
	}
	lang, err := o.workspace.DetectLanguage()
	if err != nil {
		return nil, err
	}

	report := &CleanReport{Language: lang}

	report.Containers, err = o.removeContainers(ctx, lang.ContainerName())
	if err != nil {
		return report, err
	}
	report.Images, err = o.removeImages(ctx, lang.ImageName())
	if err != nil {
		return report, err
	}
	return report, nil
}

func (o *Orchestrator) spec(lang language.Language) (ContainerSpec, error) {
	if !lang.Valid() {
		return ContainerSpec{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	dir, err := o.workspace.ActiveDir()
	if err != nil {
		return ContainerSpec{}, err
	}
	return NewContainerSpec(lang, dir), nil
}

// removeContainers force-removes every container matching name. The IDs that
// were removed are returned and announced even when others fail.
func (o *Orchestrator) removeContainers(ctx context.Context, name string) ([]string, error) {
	ids, err := o.engine.ListContainers(ctx, name)
	if err != nil {
		return nil, err
	}
	removed, err := removeAll(ctx, ids, o.engine.RemoveContainer)
	for _, id := range removed {
		o.alerts.Notify(alert.Info, "Deleted container: "+id)
	}
	return removed, err
}

func (o *Orchestrator) removeImages(ctx context.Context, reference string) ([]string, error) {
	named, err := o.engine.ListImages(ctx, reference)
	if err != nil {
		return nil, err
	}
	dangling, err := o.engine.ListDanglingImages(ctx)
	if err != nil {
		return nil, err
	}

	removed, err := removeAll(ctx, dedupe(append(named, dangling...)), o.engine.RemoveImage)
	for _, id := range removed {
		o.alerts.Notify(alert.Info, "Deleted image: "+id)
	}
	return removed, err
}

// removeAll runs remove for every id with bounded concurrency. One failure
// does not stop the others; the successful IDs come back in input order
// along with every error joined.
func removeAll(ctx context.Context, ids []string, remove func(context.Context, string) error) ([]string, error) {
	var (
		mu   sync.Mutex
		done = make(map[string]bool, len(ids))
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(removeConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			err := remove(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			done[id] = true
			return nil
		})
	}
	g.Wait()

	removed := make([]string, 0, len(done))
	for _, id := range ids {
		if done[id] {
			removed = append(removed, id)
		}
	}
	return removed, errors.Join(errs...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (o *Orchestrator) transition(outcome *RunOutcome, next State) {
	logging.Debug(subsystem, "[%s] %s -> %s", outcome.Spec.ImageName, outcome.State, next)
	outcome.State = next
}
