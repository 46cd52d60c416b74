package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix namespaces the environment variables that override flags.
const envPrefix = "LATSIM_"

// envName maps a flag name to its variable, e.g. "tick-period" -> "LATSIM_TICK_PERIOD".
func envName(flag string) string {
	out := []byte(envPrefix)
	for i := 0; i < len(flag); i++ {
		c := flag[i]
		switch {
		case c == '-':
			c = '_'
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// applyEnvOverrides loads .env (if present) and sets every flag the user did not
// pass explicitly from its LATSIM_* variable. Command-line flags always win.
func applyEnvOverrides(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("ignoring unreadable .env: %v", err)
	}

	var firstErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}
		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}
		if err := cmd.Flags().Set(f.Name, value); err != nil {
			firstErr = err
			return
		}
		logrus.Debugf("flag --%s set from %s", f.Name, envName(f.Name))
	})
	return firstErr
}
