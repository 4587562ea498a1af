package library

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"coursehub/pkg/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your course library",
	Long:  "View all owned courses with learning progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in. Please run: coursehub auth login")
		}

		serverURL := fmt.Sprintf("http://%s:%d/api/v1/users/library",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"))

		req, _ := http.NewRequest("GET", serverURL, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to get library: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(respBody, &result)

		if result["success"] != true {
			return fmt.Errorf("failed: %v", result["error"])
		}

		data, ok := result["data"].(map[string]interface{})
		if !ok {
			return fmt.Errorf("unexpected response format")
		}
		library, _ := data["data"].([]interface{})

		if len(library) == 0 {
			fmt.Println("Your library is empty.")
			fmt.Println("Find something with: coursehub course search <query>")
			return nil
		}

		fmt.Printf("\nYour Library (%d courses):\n\n", len(library))

		for i, item := range library {
			entry, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			course, _ := entry["course"].(map[string]interface{})
			if course == nil {
				continue
			}

			fmt.Printf("%d. %s\n", i+1, course["title"])
			fmt.Printf("   Instructor: %s\n", course["instructor"])
			if progress, ok := entry["overall_progress"].(float64); ok {
				fmt.Printf("   Progress: %.1f%%\n", progress)
			}
			if raw, ok := entry["purchased_at"].(string); ok {
				if t, err := time.Parse(time.RFC3339, raw); err == nil {
					fmt.Printf("   Purchased: %s\n", utils.TimeAgo(t))
				} else {
					fmt.Printf("   Purchased: %s\n", raw)
				}
			}
			fmt.Println()
		}

		return nil
	},
}

func init() {
	LibraryCmd.AddCommand(listCmd)
}
