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

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "List your purchase history",
	Long:  "View all course purchase transactions on your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in. Please run: coursehub auth login")
		}

		serverURL := fmt.Sprintf("http://%s:%d/api/v1/users/transactions",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"))

		req, _ := http.NewRequest("GET", serverURL, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to get transactions: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(respBody, &result)

		if result["success"] == true {
			data := result["data"].(map[string]interface{})
			txns := data["data"].([]interface{})
			total := data["total"].(float64)

			fmt.Printf("\nPurchase history (%d transactions):\n\n", int(total))

			for i, item := range txns {
				txn := item.(map[string]interface{})

				fmt.Printf("%d. %s\n", i+1, txn["id"].(string))
				fmt.Printf("   Course: %s\n", txn["course_id"].(string))
				if cents, ok := txn["amount_cents"].(float64); ok {
					if cents == 0 {
						fmt.Printf("   Amount: Free\n")
					} else {
						fmt.Printf("   Amount: %.2f %s\n", cents/100, txn["currency"].(string))
					}
				}
				fmt.Printf("   Status: %s\n", txn["status"])
				if raw, ok := txn["created_at"].(string); ok {
					if t, err := time.Parse(time.RFC3339, raw); err == nil {
						fmt.Printf("   Date: %s\n", utils.TimeAgo(t))
					} else {
						fmt.Printf("   Date: %s\n", raw)
					}
				}
				fmt.Println()
			}
		} else {
			return fmt.Errorf("failed: %v", result["error"])
		}

		return nil
	},
}

func init() {
	LibraryCmd.AddCommand(transactionsCmd)
}
