// SPDX-License-Identifier: MIT
package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linkerVars mirrors the four -X variables.
type linkerVars struct {
	name, time, commit, version string
}

// withLinkerVars sets the -X variables and a fresh default flag set for one test, restoring the
// package state afterwards.
func withLinkerVars(t *testing.T, v linkerVars) {
	t.Helper()
	saved := linkerVars{buildName, buildTime, buildCommit, buildVersion}
	savedFlags := buildFlags
	t.Cleanup(func() {
		buildName, buildTime, buildCommit, buildVersion = saved.name, saved.time, saved.commit, saved.version
		buildFlags = savedFlags
	})

	buildName, buildTime, buildCommit, buildVersion = v.name, v.time, v.commit, v.version
	buildFlags = &ldFlags{
		Name:        "popdetect",
		Description: description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
	}
}

func TestInitializeCopiesLinkerVars(t *testing.T) {
	withLinkerVars(t, linkerVars{"popdetect-ci", "2026-01-02T03:04:05Z", "9f8e7d6", "1.4.0"})

	require.NoError(t, Initialize())

	got := GetBuildFlags()
	assert.Equal(t, "popdetect-ci", got.Name)
	assert.Equal(t, "2026-01-02T03:04:05Z", got.Time)
	assert.Equal(t, "9f8e7d6", got.Commit)
	assert.Equal(t, "1.4.0", got.Version)
	assert.Equal(t, description, got.Description, "the description is not a linker variable")
}

func TestInitializeKeepsDefaultsWhenIncomplete(t *testing.T) {
	full := linkerVars{"popdetect", "2026-01-02", "9f8e7d6", "1.4.0"}
	tests := map[string]struct {
		blank   func(*linkerVars)
		wantErr string
	}{
		"no name":    {func(v *linkerVars) { v.name = "" }, "BuildName is required"},
		"no time":    {func(v *linkerVars) { v.time = "" }, "BuildTime is required"},
		"no commit":  {func(v *linkerVars) { v.commit = "" }, "BuildCommit is required"},
		"no version": {func(v *linkerVars) { v.version = "" }, "BuildVersion is required"},
		"all blank":  {func(v *linkerVars) { *v = linkerVars{} }, "BuildName is required"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			v := full
			tt.blank(&v)
			withLinkerVars(t, v)

			assert.EqualError(t, Initialize(), tt.wantErr)

			got := GetBuildFlags()
			assert.Equal(t, "popdetect", got.Name)
			assert.Equal(t, "unknown", got.Version)
			assert.Equal(t, "unknown", got.Commit)
		})
	}
}

func TestVersionLine(t *testing.T) {
	withLinkerVars(t, linkerVars{})
	assert.Equal(t, "popdetect unknown (commit unknown, built unknown)", GetBuildFlags().String())

	f := ldFlags{Name: "popdetect", Version: "0.1.0", Commit: "abc123", Time: "2025-04-13"}
	assert.Equal(t, "popdetect 0.1.0 (commit abc123, built 2025-04-13)", f.String())
}
