package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings",
	Long:  "Display the server address and the stored session, if any.",
	Run: func(cmd *cobra.Command, args []string) {
		host := viper.GetString("server.host")
		port := viper.GetInt("server.http_port")

		fmt.Println("Server:")
		fmt.Printf("  %s:%d  (http://%s:%d/api/v1)\n", host, port, host, port)
		fmt.Println()

		username := viper.GetString("user.username")
		if username == "" {
			fmt.Println("Session: not signed in")
			fmt.Println("  Run 'coursehub auth login' to authenticate")
			return
		}

		fmt.Println("Session:")
		fmt.Printf("  Username: %s\n", username)
		token := viper.GetString("user.token")
		if token == "" {
			fmt.Println("  Status: ✗ no token stored")
			return
		}
		if len(token) > 16 {
			token = token[:16] + "..."
		}
		fmt.Printf("  Token: %s\n", token)
		fmt.Println("  Status: ✓ signed in")
	},
}

func init() {
	ConfigCmd.AddCommand(showCmd)
}
