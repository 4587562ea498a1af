package course

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for courses",
	Long:  "Search the course catalog by title, description, or instructor",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]

		limit, _ := cmd.Flags().GetInt("limit")

		// Build query
		params := url.Values{}
		params.Set("q", query)
		params.Set("limit", fmt.Sprintf("%d", limit))

		serverURL := fmt.Sprintf("http://%s:%d/api/v1/courses/search?%s",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"),
			params.Encode())

		resp, err := http.Get(serverURL)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(respBody, &result)

		if result["success"] != true {
			return fmt.Errorf("search failed")
		}

		data := result["data"].(map[string]interface{})
		courses := data["data"].([]interface{})
		total := data["total"].(float64)

		fmt.Printf("\nFound %d results:\n\n", int(total))

		for i, c := range courses {
			item := c.(map[string]interface{})
			fmt.Printf("%d. %s\n", i+1, item["title"].(string))
			fmt.Printf("   Instructor: %s\n", item["instructor"].(string))
			fmt.Printf("   Level: %s\n", item["level"].(string))
			if cents, ok := item["price_cents"].(float64); ok {
				if cents == 0 {
					fmt.Printf("   Price: Free\n")
				} else {
					fmt.Printf("   Price: %.2f %s\n", cents/100, item["currency"].(string))
				}
			}
			fmt.Printf("   ID: %s\n\n", item["id"].(string))
		}

		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 10, "Number of results")
	CourseCmd.AddCommand(searchCmd)
}
