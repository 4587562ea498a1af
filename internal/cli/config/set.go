package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settable lists the keys 'config set' accepts. Session keys are
// written by 'auth login' and stay out of reach here.
var settable = map[string]bool{
	"server.host":      true,
	"server.http_port": true,
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long:  "Update a server setting and write it to ~/.coursehub/config.yaml.\nKeys: server.host, server.http_port",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !settable[key] {
			return fmt.Errorf("unknown key %q (try server.host or server.http_port)", key)
		}

		if key == "server.http_port" {
			port, err := strconv.Atoi(value)
			if err != nil || port < 1 || port > 65535 {
				return fmt.Errorf("invalid port %q", value)
			}
			viper.Set(key, port)
		} else {
			viper.Set(key, value)
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot locate home directory: %w", err)
		}
		configDir := filepath.Join(home, ".coursehub")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("cannot create %s: %w", configDir, err)
		}
		if err := viper.WriteConfigAs(filepath.Join(configDir, "config.yaml")); err != nil {
			return fmt.Errorf("cannot save config: %w", err)
		}

		fmt.Printf("✓ %s = %s\n", key, value)
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(setCmd)
}
