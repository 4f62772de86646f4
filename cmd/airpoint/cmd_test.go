package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/airpoint/internal/config"
	"github.com/ayusman/airpoint/internal/observability"
	"github.com/ayusman/airpoint/internal/store"
)

// executeCmd runs a fresh root command and returns everything it printed.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(observability.ResetForTest)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedStore(t *testing.T) (string, []string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airpoint.db")
	st, err := store.New(path)
	require.NoError(t, err)
	defer st.Close()

	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		rec := &store.SessionRecord{StartedAt: base.Add(time.Duration(i) * time.Hour), CameraWidth: 640, CameraHeight: 480}
		require.NoError(t, st.Sessions().Create(rec))
		end := rec.StartedAt.Add(90 * time.Second)
		rec.EndedAt = &end
		rec.Frames = 100 * (i + 1)
		rec.Presses = i
		require.NoError(t, st.Sessions().Finish(rec))
		ids = append(ids, rec.ID)
	}
	return path, ids
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCmd(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "airpoint version dev\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "airpoint version dev")
}

func TestRootCmd_Help(t *testing.T) {
	out, err := executeCmd(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "tracks one hand and drives the mouse pointer")
	for _, sub := range []string{"run", "sessions", "version"} {
		assert.Contains(t, out, sub)
	}
	assert.Contains(t, out, "--padding")
}

func TestSessionsCmd(t *testing.T) {
	path, ids := seedStore(t)

	t.Run("table is newest first", func(t *testing.T) {
		out, err := executeCmd(t, "sessions", "--store", path, "--limit", "2")
		require.NoError(t, err)
		assert.Contains(t, out, "FRAMES")
		assert.Contains(t, out, ids[2])
		assert.Contains(t, out, ids[1])
		assert.NotContains(t, out, ids[0])
		assert.Contains(t, out, "1m30s")
		assert.Less(t, bytes.Index([]byte(out), []byte(ids[2])), bytes.Index([]byte(out), []byte(ids[1])))
	})

	t.Run("json", func(t *testing.T) {
		out, err := executeCmd(t, "sessions", "--store", path, "--json")
		require.NoError(t, err)
		var recs []store.SessionRecord
		require.NoError(t, json.Unmarshal([]byte(out), &recs))
		require.Len(t, recs, 3)
		assert.Equal(t, 300, recs[0].Frames)
	})

	t.Run("delete", func(t *testing.T) {
		out, err := executeCmd(t, "sessions", "delete", ids[0], "--store", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted session "+ids[0])

		_, err = executeCmd(t, "sessions", "delete", ids[0], "--store", path)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSessionsCmd_Empty(t *testing.T) {
	out, err := executeCmd(t, "sessions", "--store", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded.")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "airpoint.yaml")
	require.NoError(t, os.WriteFile(file, []byte("mapping:\n  padding: -5\n"), 0o644))

	_, err := executeCmd(t, "sessions", "--config", file, "--store", filepath.Join(t.TempDir(), "a.db"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestBindFlags(t *testing.T) {
	cmd := newRunCmd(&options{})
	require.NoError(t, cmd.Flags().Parse([]string{"--padding", "40", "--server", "--camera=2"}))

	v := viper.New()
	config.SetDefaults(v)
	require.NoError(t, bindFlags(v, cmd.Flags()))

	assert.Equal(t, 40, v.GetInt("mapping.padding"))
	assert.True(t, v.GetBool("server.enabled"))
	assert.Equal(t, 2, v.GetInt("camera.index"))
	assert.Equal(t, 640, v.GetInt("camera.width"), "unset flags keep the default")
	assert.True(t, v.GetBool("camera.show"))
}
