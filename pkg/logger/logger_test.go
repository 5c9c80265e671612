package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitWithOptionsSetsLevel(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	require.NoError(t, InitWithOptions(Options{Level: "debug"}))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestInitWithOptionsFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	require.NoError(t, InitWithOptions(Options{Level: "not-a-level", Format: "console"}))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestReplaceNilInstallsNop(t *testing.T) {
	Replace(nil)
	require.NotNil(t, Logger())
	require.False(t, Logger().Core().Enabled(zap.ErrorLevel))
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(func() { Replace(nil) })
	Replace(zap.New(core))

	WithModule("projects").Info("module test", zap.String("project_id", "p1"))

	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "projects", entries[0].ContextMap()["module"])
	require.Equal(t, "p1", entries[0].ContextMap()["project_id"])
}
