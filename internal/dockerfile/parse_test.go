package dockerfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantPorts   []int
		wantVolumes []string
	}{
		{
			name:        "no directives",
			content:     "FROM python:3.10-slim\nWORKDIR /app\n",
			wantPorts:   []int{},
			wantVolumes: []string{},
		},
		{
			name:        "single expose",
			content:     "FROM node:18\nEXPOSE 8080\n",
			wantPorts:   []int{8080},
			wantVolumes: []string{},
		},
		{
			name:        "multiple expose accumulate",
			content:     "EXPOSE 8080 9090\nEXPOSE 3000,4000\n",
			wantPorts:   []int{3000, 4000, 8080, 9090},
			wantVolumes: []string{},
		},
		{
			name:        "protocol suffix",
			content:     "EXPOSE 53/udp 80/tcp\n",
			wantPorts:   []int{53, 80},
			wantVolumes: []string{},
		},
		{
			name:        "non numeric tokens dropped",
			content:     "EXPOSE http 8080 $PORT\n",
			wantPorts:   []int{8080},
			wantVolumes: []string{},
		},
		{
			name:        "out of range ports dropped",
			content:     "EXPOSE 8080 70000 0\nEXPOSE -1 65535/tcp\n",
			wantPorts:   []int{8080, 65535},
			wantVolumes: []string{},
		},
		{
			name:        "duplicate ports",
			content:     "EXPOSE 8080\nEXPOSE 8080, 8080\n",
			wantPorts:   []int{8080},
			wantVolumes: []string{},
		},
		{
			name:        "volume plain form",
			content:     "VOLUME /data /cache\n",
			wantPorts:   []int{},
			wantVolumes: []string{"/data", "/cache"},
		},
		{
			name:        "volume json form",
			content:     `VOLUME ["/data", "/cache"]` + "\n",
			wantPorts:   []int{},
			wantVolumes: []string{"/data", "/cache"},
		},
		{
			name:        "volume malformed json dropped",
			content:     "VOLUME [\"/data\", /cache]\n VOLUME /logs\n",
			wantPorts:   []int{},
			wantVolumes: []string{"/logs"},
		},
		{
			name:        "volume duplicates across forms",
			content:     "VOLUME /data\nVOLUME [\"/data\", \"/cache\"]\nVOLUME /cache,/data\n",
			wantPorts:   []int{},
			wantVolumes: []string{"/data", "/cache"},
		},
		{
			name:        "case sensitive",
			content:     "expose 8080\nvolume /data\n",
			wantPorts:   []int{},
			wantVolumes: []string{},
		},
		{
			name:        "comments ignored",
			content:     "# EXPOSE 8080\n  EXPOSE 9000\n",
			wantPorts:   []int{9000},
			wantVolumes: []string{},
		},
		{
			name:        "keyword prefix is not a directive",
			content:     "EXPOSED 8080\nVOLUMES /data\n",
			wantPorts:   []int{},
			wantVolumes: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.content)
			assert.Equal(t, tt.wantPorts, got.Ports)
			assert.Equal(t, tt.wantVolumes, got.Volumes)
		})
	}
}

func TestParseIdempotent(t *testing.T) {
	content := "EXPOSE 9090 8080\nVOLUME /b\nEXPOSE 8080\nVOLUME [\"/a\", \"/b\"]\n"
	first := Parse(content)
	second := Parse(content)
	assert.Equal(t, first, second)
	assert.Equal(t, []int{8080, 9090}, first.Ports)
	assert.Equal(t, []string{"/b", "/a"}, first.Volumes)
}

func TestParseOrderIndependentPorts(t *testing.T) {
	a := Parse("EXPOSE 1 2 3\n")
	b := Parse("EXPOSE 3\nEXPOSE 2,1\nEXPOSE 3\n")
	assert.Equal(t, a.Ports, b.Ports)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "python.Dockerfile")
	require.NoError(t, os.WriteFile(path, []byte("FROM python\nEXPOSE 5000\nVOLUME /data\n"), 0644))

	got := ParseFile(path)
	assert.Equal(t, []int{5000}, got.Ports)
	assert.Equal(t, []string{"/data"}, got.Volumes)
}

func TestParseFileMissing(t *testing.T) {
	got := ParseFile(filepath.Join(t.TempDir(), "missing.Dockerfile"))
	assert.True(t, got.Empty())
	assert.NotNil(t, got.Ports)
	assert.NotNil(t, got.Volumes)
}
