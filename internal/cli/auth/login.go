package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to CourseHub",
	Long:  "Authenticate and store the session token under ~/.coursehub for the course, library, and progress commands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		if username == "" {
			username = readLine("Username: ")
		}
		password := readSecret("Password: ")
		if username == "" || password == "" {
			return fmt.Errorf("username and password are required")
		}

		result, err := postJSON("/auth/login", map[string]string{
			"username": username,
			"password": password,
		})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		data, ok := result["data"].(map[string]interface{})
		if result["success"] != true || !ok {
			return envelopeError(result, "login failed")
		}

		token, _ := data["token"].(string)
		user, _ := data["user"].(map[string]interface{})
		if token == "" || user == nil {
			return fmt.Errorf("malformed login response")
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot locate home directory: %w", err)
		}
		configDir := filepath.Join(home, ".coursehub")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("cannot create %s: %w", configDir, err)
		}

		viper.Set("user.username", username)
		viper.Set("user.id", user["id"])
		viper.Set("user.token", token)
		configFile := filepath.Join(configDir, "config.yaml")
		if err := viper.WriteConfigAs(configFile); err != nil {
			return fmt.Errorf("cannot save session: %w", err)
		}

		fmt.Printf("✓ Signed in as %s\n", username)
		if secs, ok := data["expires_in"].(float64); ok && secs > 0 {
			fmt.Printf("  Session valid for %.0fh, token stored in %s\n", secs/3600, configFile)
		} else {
			fmt.Printf("  Token stored in %s\n", configFile)
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().String("username", "", "Account username")
	AuthCmd.AddCommand(loginCmd)
}
