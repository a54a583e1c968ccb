package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "qmsctl",
	Short: "QMS session client",
	Long: `qmsctl logs in to the QMS backend and keeps the session in
~/.qms/credentials.json (or Redis), so other commands and tools can reuse it.

Every flag can also be set through a QMS_* environment variable, for example
QMS_SERVER=https://qms.example.co.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("server", "http://localhost:8000", "QMS backend base URL")
	f.String("credentials", "", "credentials file (default ~/.qms/credentials.json)")
	f.String("redis-addr", "", "keep the session in Redis and share logouts over pub/sub")
	f.String("redis-namespace", "qms:", "Redis key prefix")
	f.Int("retries", 3, "retries for transient failures")
	f.Duration("timeout", 30*time.Second, "per-request timeout")
	f.IntP("verbose", "v", 0, "log verbosity")
	_ = viper.BindPFlags(f)

	viper.SetEnvPrefix("QMS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(permissionsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(errorsCmd)
	rootCmd.AddCommand(devServerCmd)
}
