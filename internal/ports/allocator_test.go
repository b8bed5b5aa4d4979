package ports

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedAllocator(start int, busy map[int]bool) *Allocator {
	a := NewAllocator(30000, 60000, 10)
	a.intN = func(n int) int { return start - a.Min }
	a.probe = func(port int) error {
		if busy[port] {
			return errors.New("address already in use")
		}
		return nil
	}
	return a
}

func TestOptionsEmpty(t *testing.T) {
	a := fixedAllocator(31000, nil)
	opts, err := a.Options(nil)
	require.NoError(t, err)
	assert.Equal(t, "", opts)
}

func TestOptionsFormat(t *testing.T) {
	a := fixedAllocator(31007, nil)
	opts, err := a.Options([]int{8080, 9090})
	require.NoError(t, err)
	// Same random start for both ports; the second must skip the first's host port.
	assert.Equal(t, "-p 31007:8080 -p 31008:9090", opts)
}

func TestAllocateSkipsBusyPorts(t *testing.T) {
	a := fixedAllocator(40000, map[int]bool{40000: true, 40001: true})
	mappings, err := a.Allocate([]int{80})
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, 40002, mappings[0].Host)
	assert.Equal(t, "80", mappings[0].Container.Port())
	assert.Equal(t, "tcp", mappings[0].Container.Proto())
}

func TestAllocateWrapsAtMax(t *testing.T) {
	a := fixedAllocator(60000, map[int]bool{60000: true})
	mappings, err := a.Allocate([]int{80})
	require.NoError(t, err)
	assert.Equal(t, 30000, mappings[0].Host)
}

func TestAllocateExhaustion(t *testing.T) {
	a := NewAllocator(30000, 60000, 5)
	a.intN = func(int) int { return 0 }
	probes := 0
	a.probe = func(int) error {
		probes++
		return errors.New("address already in use")
	}

	_, err := a.Allocate([]int{8080})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPortAllocationFailed))
	assert.Equal(t, 5, probes)
}

func TestAllocateInvalidContainerPort(t *testing.T) {
	a := fixedAllocator(31000, nil)
	_, err := a.Allocate([]int{70000})
	require.Error(t, err)
}

func TestAllocateDistinctHostPorts(t *testing.T) {
	// Real probes against the loopback stack. The result is a best-effort
	// allocation; it only has to be internally consistent.
	a := NewAllocator(0, 0, 0)
	internal := []int{80, 443, 8080, 9090, 5432}

	mappings, err := a.Allocate(internal)
	require.NoError(t, err)
	require.Len(t, mappings, len(internal))

	seen := make(map[int]bool)
	for _, m := range mappings {
		assert.GreaterOrEqual(t, m.Host, DefaultMin)
		assert.LessOrEqual(t, m.Host, DefaultMax)
		assert.False(t, seen[m.Host], "host port %d allocated twice", m.Host)
		seen[m.Host] = true
	}

	opts := FormatOptions(mappings)
	assert.Equal(t, len(internal), strings.Count(opts, "-p "))
}

func TestProbeTCPDetectsBoundPort(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	assert.Error(t, probeTCP(port))
}
