// Package dockerfile extracts the ports and volumes a Dockerfile declares.
// Only EXPOSE and VOLUME are understood; everything else is ignored.
package dockerfile

import (
	"bufio"
	"encoding/json"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"

	"github.com/jakenelson/devdock/internal/logging"
)

const subsystem = "Dockerfile"

// Descriptor is the set of ports and volumes declared by a Dockerfile.
// Ports are sorted ascending; volumes keep the order they were first seen.
type Descriptor struct {
	Ports   []int
	Volumes []string
}

// Empty reports whether nothing was declared.
func (d Descriptor) Empty() bool {
	return len(d.Ports) == 0 && len(d.Volumes) == 0
}

// ParseFile reads and parses the Dockerfile at path. A missing or unreadable
// file yields an empty Descriptor so callers can carry on without port or
// volume options.
func ParseFile(path string) Descriptor {
	content, err := os.ReadFile(path)
	if err != nil {
		logging.Warn(subsystem, "Failed to read Dockerfile at %s, continuing without ports or volumes: %v", path, err)
		return Descriptor{Ports: []int{}, Volumes: []string{}}
	}
	return Parse(string(content))
}

// Parse extracts EXPOSE and VOLUME declarations from Dockerfile text.
func Parse(content string) Descriptor {
	ports := make(map[int]struct{})
	volumes := []string{}
	seenVolumes := make(map[string]struct{})

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if value, ok := directive(line, "EXPOSE"); ok {
			for _, p := range parseExpose(value) {
				ports[p] = struct{}{}
			}
			continue
		}

		if value, ok := directive(line, "VOLUME"); ok {
			for _, v := range parseVolume(value) {
				if _, dup := seenVolumes[v]; dup {
					continue
				}
				seenVolumes[v] = struct{}{}
				volumes = append(volumes, v)
			}
		}
	}

	sorted := make([]int, 0, len(ports))
	for p := range ports {
		sorted = append(sorted, p)
	}
	slices.Sort(sorted)

	return Descriptor{Ports: sorted, Volumes: volumes}
}

// directive returns the argument text when line starts with keyword followed
// by whitespace.
func directive(line, keyword string) (string, bool) {
	if !strings.HasPrefix(line, keyword) {
		return "", false
	}
	rest := line[len(keyword):]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}
	value := strings.TrimSpace(rest)
	return value, value != ""
}

func parseExpose(value string) []int {
	var ports []int
	for _, token := range splitTokens(value) {
		_, port := nat.SplitProtoPort(token)
		if _, err := strconv.Atoi(port); err != nil {
			continue
		}
		n, err := nat.ParsePort(port)
		if err != nil || n <= 0 {
			logging.Warn(subsystem, "Ignoring EXPOSE %s: port must be between 1 and 65535", token)
			continue
		}
		ports = append(ports, n)
	}
	return ports
}

func parseVolume(value string) []string {
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		var paths []string
		if err := json.Unmarshal([]byte(value), &paths); err != nil {
			logging.Warn(subsystem, "Invalid JSON in VOLUME: %s", value)
			return nil
		}
		out := paths[:0]
		for _, p := range paths {
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return splitTokens(value)
}

func splitTokens(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
