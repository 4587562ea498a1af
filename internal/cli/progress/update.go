package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Mark a chapter as completed",
	Long:  "Record chapter completion. The server merges the update with existing progress, and offline updates are queued locally for later sync.",
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetString("course-id")
		sectionID, _ := cmd.Flags().GetString("section-id")
		chapterID, _ := cmd.Flags().GetString("chapter-id")
		undone, _ := cmd.Flags().GetBool("undone")

		if courseID == "" {
			return fmt.Errorf("--course-id is required")
		}
		if sectionID == "" {
			return fmt.Errorf("--section-id is required")
		}
		if chapterID == "" {
			return fmt.Errorf("--chapter-id is required")
		}

		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in. Please run: coursehub auth login")
		}

		body := map[string]interface{}{
			"sections": []map[string]interface{}{
				{
					"sectionId": sectionID,
					"chapters": []map[string]interface{}{
						{"chapterId": chapterID, "completed": !undone},
					},
				},
			},
		}

		jsonBody, _ := json.Marshal(body)
		serverURL := fmt.Sprintf("http://%s:%d/api/v1/users/progress/%s",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"),
			courseID)

		req, _ := http.NewRequest("PUT", serverURL, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			// Server unreachable, queue the update for later sync
			db, spoolErr := openSpool()
			if spoolErr != nil {
				return fmt.Errorf("failed to update progress: %w", err)
			}
			defer db.Close()

			if spoolErr := enqueueUpdate(db, courseID, string(jsonBody)); spoolErr != nil {
				return fmt.Errorf("failed to queue update: %w", spoolErr)
			}

			count, _ := spoolCount(db)
			fmt.Println("⚠ Server unreachable, update queued locally")
			fmt.Printf("  Course ID: %s\n", courseID)
			fmt.Printf("  Chapter: %s\n", chapterID)
			fmt.Printf("  Queued updates: %d\n", count)
			fmt.Println("\nRun 'coursehub progress sync' when back online")
			return nil
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(respBody, &result)

		if result["success"] == true {
			fmt.Printf("✓ Progress updated!\n")
			fmt.Printf("  Course ID: %s\n", courseID)
			fmt.Printf("  Chapter: %s\n", chapterID)
			if undone {
				fmt.Printf("  Marked: not completed\n")
			} else {
				fmt.Printf("  Marked: completed\n")
			}
		} else {
			return fmt.Errorf("failed: %v", result["error"])
		}

		return nil
	},
}

func init() {
	updateCmd.Flags().String("course-id", "", "Course ID (required)")
	updateCmd.Flags().String("section-id", "", "Section ID (required)")
	updateCmd.Flags().String("chapter-id", "", "Chapter ID (required)")
	updateCmd.Flags().Bool("undone", false, "Mark the chapter as not completed instead")
	updateCmd.MarkFlagRequired("course-id")
	updateCmd.MarkFlagRequired("section-id")
	updateCmd.MarkFlagRequired("chapter-id")
	ProgressCmd.AddCommand(updateCmd)
}
