package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_LoadFile_Missing_File_Uses_Defaults(t *testing.T) {
	// Act
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml"))

	// Assert
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 6, cfg.Lobby.CodeLength)
	require.Equal(t, 30*time.Minute, cfg.Lobby.IdleTimeout)
	require.Equal(t, time.Minute, cfg.Lobby.SweepInterval)
	require.Equal(t, 64, cfg.Broadcast.Buffer)
	require.Equal(t, "drop_subscription", cfg.Broadcast.Policy)
	require.Empty(t, cfg.Redis.Addr)
}

func Test_LoadFile_Reads_Yaml_And_Env_Overrides(t *testing.T) {
	// Arrange
	file := filepath.Join(t.TempDir(), "config.test.yaml")
	yaml := `
mode: debug
port: 9000
lobby:
  min_players: 2
  idle_timeout: 5m
broadcast:
  policy: skip_event
redis:
  addr: localhost:6379
`
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o600))
	t.Setenv("LOBBY_PORT", "9100")
	t.Setenv("LOBBY_JOIN_LIMIT_COUNT", "3")

	// Act
	cfg, err := LoadFile(file)

	// Assert
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Mode)
	require.Equal(t, 9100, cfg.Port)
	require.Equal(t, 2, cfg.Lobby.MinPlayers)
	require.Equal(t, 5*time.Minute, cfg.Lobby.IdleTimeout)
	require.Equal(t, "skip_event", cfg.Broadcast.Policy)
	require.Equal(t, 3, cfg.JoinLimit.Count)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func Test_LoadFile_Rejects_Unknown_Policy(t *testing.T) {
	// Arrange
	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("broadcast:\n  policy: yolo\n"), 0o600))

	// Act
	_, err := LoadFile(file)

	// Assert
	require.Error(t, err)
}
