package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckCommand(t *testing.T) {
	resetFlags()
	output, err := captureOutput(t, func() error {
		return runCheck(context.Background(), []string{testTracePath(t, "realloc.rep")})
	})
	require.NoError(t, err)
	assertContains(t, output, []string{"OK realloc.rep: 14 ops"})
}

func TestCheckCommand_Failure(t *testing.T) {
	resetFlags()
	path := writeTrace(t, "bad.rep", "a 0 8\nf 0\na 0 16\na 0 16\n")

	output, err := captureOutput(t, func() error {
		return runCheck(context.Background(), []string{path})
	})
	require.Error(t, err)
	assertContains(t, output, []string{"FAIL", "at op 3 (line 4)"})

	jsonOut = true
	output, err = captureOutput(t, func() error {
		return runCheck(context.Background(), []string{path})
	})
	require.Error(t, err)
	assertJSON(t, output)
	assertContains(t, output, []string{`"ok": false`, `"failed_line": 4`, "already live"})
}

func TestCheckCommand_MissingTrace(t *testing.T) {
	resetFlags()
	err := runCheck(context.Background(), []string{"does-not-exist.rep"})
	require.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	resetFlags()
	output, err := captureOutput(t, func() error {
		return runStats(context.Background(), []string{testTracePath(t, "binary.rep")})
	})
	require.NoError(t, err)
	assertContains(t, output, []string{"Trace: binary.rep", "ALLOCATOR STATISTICS (Default)", "Fragmentation:"})
}

func TestStatsCommand_StopAndDump(t *testing.T) {
	resetFlags()
	statsStop = 3
	statsDump = true
	output, err := captureOutput(t, func() error {
		return runStats(context.Background(), []string{testTracePath(t, "short1.rep")})
	})
	require.NoError(t, err)
	assertContains(t, output, []string{"(3 of 12 ops)", "heap [0x0,", "used"})
}

func TestStatsCommand_JSON(t *testing.T) {
	resetFlags()
	jsonOut = true
	statsFlags.preset = "LargeChunk"
	output, err := captureOutput(t, func() error {
		return runStats(context.Background(), []string{testTracePath(t, "coalesce.rep")})
	})
	require.NoError(t, err)
	assertJSON(t, output)
	assertContains(t, output, []string{`"config": "LargeChunk"`, `"AllocCalls": 8`, `"FreeCalls": 8`})
}

func TestStatsCommand_RejectsBump(t *testing.T) {
	resetFlags()
	statsFlags.bump = true
	err := runStats(context.Background(), []string{testTracePath(t, "short1.rep")})
	require.ErrorContains(t, err, "segregated-fit")
}

func TestHeapFlags_Overrides(t *testing.T) {
	f := heapFlags{preset: "Default", chunk: 4096, initial: 64, threshold: 256}
	cfg, err := f.config()
	require.NoError(t, err)
	require.Equal(t, "Default", cfg.Name)
	require.Equal(t, 4096, cfg.ChunkSize)
	require.Equal(t, 64, cfg.InitialSize)
	require.Equal(t, 256, cfg.PlacementThreshold)

	f.chunk = -1
	_, err = f.config()
	require.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	resetFlags()
	require.NoError(t, setupLogging(nil, nil))

	logLevel = "debug"
	require.NoError(t, setupLogging(nil, nil))

	logLevel = "loud"
	require.ErrorContains(t, setupLogging(nil, nil), "invalid --log-level")
	resetFlags()
	require.NoError(t, setupLogging(nil, nil))
}

func TestFormatting(t *testing.T) {
	require.Equal(t, "1,234,567", formatNumber(1234567))
	require.Equal(t, "999", formatNumber(999))
	require.Equal(t, "12,345.7", formatFloat(12345.678, 1))
	require.Equal(t, "512 B", formatBytes(512))
	require.Equal(t, "1.5 KB", formatBytes(1536))
	require.Equal(t, "20.0 MB", formatBytes(20<<20))
}

func TestRootCommandWiring(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"replay", "check", "stats", "inspect", "version"} {
		require.True(t, names[want], "missing command %s", want)
	}
}
