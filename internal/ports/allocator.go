// Package ports picks free host ports for the ports a Dockerfile exposes.
//
// Allocation is best effort: a port is probed by binding and immediately
// releasing a TCP listener, so another process may still claim it before
// `docker run` does.
package ports

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"

	"github.com/jakenelson/devdock/internal/logging"
)

const subsystem = "Ports"

// Defaults for the host port search window.
const (
	DefaultMin         = 30000
	DefaultMax         = 60000
	DefaultMaxAttempts = 100
)

// ErrPortAllocationFailed is returned when no free host port was found
// within the attempt budget.
var ErrPortAllocationFailed = errors.New("port allocation failed")

// Mapping binds a host port to a container port.
type Mapping struct {
	Host      int
	Container nat.Port
}

// String renders the mapping the way `docker run -p` expects it.
func (m Mapping) String() string {
	return strconv.Itoa(m.Host) + ":" + m.Container.Port()
}

// Allocator finds free host ports within [Min, Max].
type Allocator struct {
	Min         int
	Max         int
	MaxAttempts int

	intN  func(n int) int
	probe func(port int) error
}

// NewAllocator returns an allocator over [min, max] giving up after
// maxAttempts probes per container port. Zero values select the defaults.
func NewAllocator(min, max, maxAttempts int) *Allocator {
	if min <= 0 {
		min = DefaultMin
	}
	if max <= 0 {
		max = DefaultMax
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{
		Min:         min,
		Max:         max,
		MaxAttempts: maxAttempts,
		intN:        rand.IntN,
		probe:       probeTCP,
	}
}

// Allocate returns one mapping per container port. Host ports within a
// single call are distinct.
func (a *Allocator) Allocate(containerPorts []int) ([]Mapping, error) {
	if a.Min > a.Max {
		return nil, fmt.Errorf("invalid host port range %d-%d", a.Min, a.Max)
	}

	mappings := make([]Mapping, 0, len(containerPorts))
	taken := make(map[int]bool, len(containerPorts))

	for _, internal := range containerPorts {
		port, err := nat.NewPort("tcp", strconv.Itoa(internal))
		if err != nil {
			return nil, fmt.Errorf("invalid container port %d: %w", internal, err)
		}

		start := a.Min + a.intN(a.Max-a.Min+1)
		host, err := a.findAvailable(start, taken)
		if err != nil {
			return nil, fmt.Errorf("container port %d: %w", internal, err)
		}
		taken[host] = true

		logging.Debug(subsystem, "Mapped host port %d to container port %s", host, port.Port())
		mappings = append(mappings, Mapping{Host: host, Container: port})
	}

	return mappings, nil
}

// Options renders `-p host:container` for every container port, space
// separated. It returns "" when no ports are declared.
func (a *Allocator) Options(containerPorts []int) (string, error) {
	if len(containerPorts) == 0 {
		return "", nil
	}

	mappings, err := a.Allocate(containerPorts)
	if err != nil {
		return "", err
	}
	return FormatOptions(mappings), nil
}

// FormatOptions renders mappings as `docker run` port flags.
func FormatOptions(mappings []Mapping) string {
	opts := make([]string, 0, len(mappings))
	for _, m := range mappings {
		opts = append(opts, "-p "+m.String())
	}
	return strings.Join(opts, " ")
}

// findAvailable walks upward from start, wrapping at Max, until a port
// passes the probe or the attempt budget runs out.
func (a *Allocator) findAvailable(start int, taken map[int]bool) (int, error) {
	candidate := start
	for attempt := 0; attempt < a.MaxAttempts; attempt++ {
		if candidate > a.Max {
			candidate = a.Min
		}
		if !taken[candidate] {
			if err := a.probe(candidate); err == nil {
				return candidate, nil
			}
		}
		candidate++
	}
	return 0, fmt.Errorf("%w: no free host port after %d attempts starting at %d", ErrPortAllocationFailed, a.MaxAttempts, start)
}

func probeTCP(port int) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	return ln.Close()
}
