// Package guard keeps at most one build/run sequence in flight per image.
//
// The guard is process local. Two devdock processes do not see each other's
// guards and can still race on the same image and container names.
package guard

import "sync"

// Guard tracks which keys (image names) have a sequence in progress.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

// New returns an empty guard.
func New() *Guard {
	return &Guard{inFlight: make(map[string]bool)}
}

// TryAcquire marks key as in progress. When another holder already owns key
// it returns ok == false and changes nothing; callers must not queue.
// The returned release function is safe to call more than once.
func (g *Guard) TryAcquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight[key] {
		return func() {}, false
	}
	g.inFlight[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.inFlight[key] = false
			g.mu.Unlock()
		})
	}, true
}

// InProgress reports whether key is currently held.
func (g *Guard) InProgress(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[key]
}
