package version_test

import (
	"testing"

	"github.com/paveg/datafilter/internal/version"
	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := version.Info()

	assert.Equal(t, version.Version, info.Version)
	assert.Equal(t, version.GoVersion, info.GoVersion)
	assert.Equal(t, version.IsRelease(), info.Release)
	assert.Contains(t, info.String(), "datafilter typed dataset engine")
}

func TestBuildInfoString(t *testing.T) {
	info := version.BuildInfo{
		Version:   "v1.2.0",
		BuildDate: "2026-01-02T03:04:05Z",
		GitCommit: "abcdef1234567890",
		GoVersion: "go1.24.4",
		Formats:   []string{"csv", "json"},
	}

	str := info.String()
	assert.Contains(t, str, "Version: v1.2.0\n")
	assert.Contains(t, str, "Build Date: 2026-01-02T03:04:05Z")
	assert.Contains(t, str, "Git Commit: abcdef1\n")
	assert.Contains(t, str, "Go Version: go1.24.4")
	assert.Contains(t, str, "Formats: csv, json")
	assert.NotContains(t, str, "(dirty)")
}

func TestBuildInfoStringUnknowns(t *testing.T) {
	info := version.BuildInfo{
		Version:   "dev",
		BuildDate: "unknown",
		GitCommit: "unknown",
		GoVersion: "go1.24.4",
		Dirty:     true,
	}

	str := info.String()
	assert.Contains(t, str, "Version: dev (dirty)")
	assert.NotContains(t, str, "Build Date")
	assert.NotContains(t, str, "Git Commit")
}

func TestUserAgent(t *testing.T) {
	original := version.Version
	defer func() { version.Version = original }()

	version.Version = "v1.0.0"
	assert.Equal(t, "datafilter/v1.0.0", version.UserAgent())
}

func TestIsRelease(t *testing.T) {
	original := version.Version
	defer func() { version.Version = original }()

	tests := []struct {
		version  string
		expected bool
	}{
		{"dev", false},
		{"v1.0.0", true},
		{"v1.1.0-rc.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			version.Version = tt.version
			assert.Equal(t, tt.expected, version.IsRelease())
			assert.Equal(t, tt.expected, version.Info().Release)
		})
	}
}
