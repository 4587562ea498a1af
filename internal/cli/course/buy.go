package course

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Buy a course",
	Long:  "Purchase a course and add it to your library. Free courses are claimed instantly.",
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetString("course-id")

		if courseID == "" {
			return fmt.Errorf("--course-id is required")
		}

		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in. Please run: coursehub auth login")
		}

		serverURL := fmt.Sprintf("http://%s:%d/api/v1/courses/%s/checkout",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"),
			courseID)

		req, _ := http.NewRequest("POST", serverURL, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("checkout failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(respBody, &result)

		if result["success"] == true {
			data := result["data"].(map[string]interface{})
			course := data["course"].(map[string]interface{})
			txn := data["transaction"].(map[string]interface{})

			fmt.Println("✓ Checkout completed!")
			fmt.Printf("  Course: %s\n", course["title"].(string))
			if cents, ok := txn["amount_cents"].(float64); ok {
				if cents == 0 {
					fmt.Printf("  Paid: Free\n")
				} else {
					fmt.Printf("  Paid: %.2f %s\n", cents/100, txn["currency"].(string))
				}
			}
			fmt.Printf("  Transaction: %s\n", txn["id"].(string))
			fmt.Println("\nNext: coursehub library list")
		} else {
			return fmt.Errorf("checkout failed: %v", result["error"])
		}

		return nil
	},
}

func init() {
	buyCmd.Flags().String("course-id", "", "Course ID (required)")
	buyCmd.MarkFlagRequired("course-id")
	CourseCmd.AddCommand(buyCmd)
}
