package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showCmd = &cobra.Command{
	Use:   "show [course-id]",
	Short: "Show your progress in a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID := args[0]

		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in. Please run: coursehub auth login")
		}

		serverURL := fmt.Sprintf("http://%s:%d/api/v1/users/progress/%s",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"),
			courseID)

		req, _ := http.NewRequest("GET", serverURL, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to connect to server: %w", err)
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

		fmt.Printf("Course: %s\n", courseID)
		if overall, ok := data["overallProgress"].(float64); ok {
			fmt.Printf("Overall progress: %.1f%%\n", overall)
		}
		if enrolled, ok := data["enrollmentDate"].(string); ok && enrolled != "" {
			fmt.Printf("Enrolled: %s\n", enrolled)
		}

		sections, ok := data["sections"].([]interface{})
		if !ok || len(sections) == 0 {
			fmt.Println("\nNo chapters completed yet")
			return nil
		}

		fmt.Println()
		for _, s := range sections {
			section, ok := s.(map[string]interface{})
			if !ok {
				continue
			}

			sectionID, _ := section["sectionId"].(string)
			chapters, _ := section["chapters"].([]interface{})

			done := 0
			for _, c := range chapters {
				chapter, ok := c.(map[string]interface{})
				if !ok {
					continue
				}
				if completed, _ := chapter["completed"].(bool); completed {
					done++
				}
			}

			fmt.Printf("  Section %s: %d/%d chapters completed\n", sectionID, done, len(chapters))
		}

		return nil
	},
}

func init() {
	ProgressCmd.AddCommand(showCmd)
}
