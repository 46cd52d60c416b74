package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"seed":             "LATSIM_SEED",
		"tick-period":      "LATSIM_TICK_PERIOD",
		"arbitrage-period": "LATSIM_ARBITRAGE_PERIOD",
		"log":              "LATSIM_LOG",
	}
	for flag, want := range tests {
		assert.Equal(t, want, envName(flag))
	}
}

func newFlagCommand() (*cobra.Command, *int64, *time.Duration, *float64) {
	c := &cobra.Command{Use: "test"}
	s := c.Flags().Int64("seed", 42, "")
	p := c.Flags().Duration("tick-period", 5*time.Second, "")
	th := c.Flags().Float64("threshold", 150, "")
	return c, s, p, th
}

func TestApplyEnvOverrides_FillsUnsetFlags(t *testing.T) {
	// GIVEN environment values for two flags
	t.Setenv("LATSIM_SEED", "7")
	t.Setenv("LATSIM_TICK_PERIOD", "250ms")
	c, s, p, th := newFlagCommand()

	// WHEN overrides are applied
	require.NoError(t, applyEnvOverrides(c))

	// THEN those flags take the environment values and the rest keep defaults
	assert.Equal(t, int64(7), *s)
	assert.Equal(t, 250*time.Millisecond, *p)
	assert.Equal(t, 150.0, *th)
}

func TestApplyEnvOverrides_CommandLineWins(t *testing.T) {
	t.Setenv("LATSIM_THRESHOLD", "80")
	c, _, _, th := newFlagCommand()
	require.NoError(t, c.Flags().Set("threshold", "120"))

	require.NoError(t, applyEnvOverrides(c))

	assert.Equal(t, 120.0, *th)
}

func TestApplyEnvOverrides_InvalidValue(t *testing.T) {
	t.Setenv("LATSIM_TICK_PERIOD", "soon")
	c, _, _, _ := newFlagCommand()
	assert.Error(t, applyEnvOverrides(c))
}
