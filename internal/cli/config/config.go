// Package config implements the commands that inspect and edit the
// CLI's stored settings under ~/.coursehub.
package config

import "github.com/spf13/cobra"

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit CLI settings",
	Long:  "Show the server the CLI talks to and the stored session, or change a setting.",
}
