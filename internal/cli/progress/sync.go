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

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay queued progress updates",
	Long:  "Send progress updates that were queued while offline. Updates are replayed in the order they were recorded, and the server merges each one with current progress.",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in. Please run: coursehub auth login")
		}

		db, err := openSpool()
		if err != nil {
			return fmt.Errorf("failed to open spool: %w", err)
		}
		defer db.Close()

		rows, err := db.Query(`SELECT id, course_id, payload FROM progress_spool ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to read spool: %w", err)
		}

		type queued struct {
			id       int64
			courseID string
			payload  string
		}
		var pending []queued
		for rows.Next() {
			var q queued
			if err := rows.Scan(&q.id, &q.courseID, &q.payload); err != nil {
				rows.Close()
				return fmt.Errorf("failed to read spool: %w", err)
			}
			pending = append(pending, q)
		}
		rows.Close()

		if len(pending) == 0 {
			fmt.Println("✓ Nothing to sync")
			return nil
		}

		fmt.Printf("Syncing %d queued update(s)...\n", len(pending))

		client := &http.Client{}
		synced := 0
		rejected := 0
		for i, q := range pending {
			serverURL := fmt.Sprintf("http://%s:%d/api/v1/users/progress/%s",
				viper.GetString("server.host"),
				viper.GetInt("server.http_port"),
				q.courseID)

			req, _ := http.NewRequest("PUT", serverURL, bytes.NewReader([]byte(q.payload)))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := client.Do(req)
			if err != nil {
				fmt.Printf("⚠ Server unreachable, stopping (%d remaining)\n", len(pending)-i)
				break
			}

			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			// The server answered, so the entry leaves the queue either
			// way. Retrying a rejected payload would never succeed.
			if _, err := db.Exec(`DELETE FROM progress_spool WHERE id = ?`, q.id); err != nil {
				return fmt.Errorf("failed to dequeue update: %w", err)
			}

			var result map[string]interface{}
			json.Unmarshal(respBody, &result)
			if result["success"] == true {
				synced++
			} else {
				rejected++
				fmt.Printf("✗ Update for course %s rejected: %v\n", q.courseID, result["error"])
			}
		}

		if synced > 0 {
			fmt.Printf("✓ Synced %d update(s)\n", synced)
		}
		if rejected > 0 {
			fmt.Printf("⚠ %d update(s) were rejected and dropped\n", rejected)
		}

		return nil
	},
}

func init() {
	ProgressCmd.AddCommand(syncCmd)
}
