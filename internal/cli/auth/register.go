package auth

import (
	"fmt"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a CourseHub account",
	Long:  "Register with a username, email address, and password, then sign in with 'coursehub auth login'.",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")

		if username == "" {
			username = readLine("Username: ")
		}
		if email == "" {
			email = readLine("Email: ")
		}
		password := readSecret("Password: ")
		confirm := readSecret("Confirm password: ")

		if username == "" || email == "" || password == "" {
			return fmt.Errorf("username, email, and password are required")
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		result, err := postJSON("/auth/register", map[string]string{
			"username": username,
			"email":    email,
			"password": password,
		})
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		if result["success"] != true {
			return envelopeError(result, "registration failed")
		}

		fmt.Println("✓ Account created")
		fmt.Printf("  Username: %s\n", username)
		fmt.Printf("  Email: %s\n", email)
		fmt.Printf("\nSign in with: coursehub auth login --username %s\n", username)
		return nil
	},
}

func init() {
	registerCmd.Flags().String("username", "", "Account username")
	registerCmd.Flags().String("email", "", "Email address")
	AuthCmd.AddCommand(registerCmd)
}
