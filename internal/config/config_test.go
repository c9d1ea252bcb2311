package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "inventario.reabastecer", cfg.Rabbit.RestockQueue)
	require.Equal(t, "inventario.reabastecer.responses", cfg.Rabbit.ResponseQueue)
	require.Equal(t, "email.password_reset", cfg.Rabbit.ResetQueue)
	require.True(t, cfg.Database.RunMigrations)
	require.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("RABBITMQ_QUEUE", "test.restock")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "test.restock", cfg.Rabbit.RestockQueue)
	require.False(t, cfg.Database.RunMigrations)
	require.Equal(t, 2525, cfg.SMTP.Port)
	require.Equal(t, "debug", cfg.LogLevel)
}
