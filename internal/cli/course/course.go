package course

import "github.com/spf13/cobra"

var CourseCmd = &cobra.Command{
	Use:   "course",
	Short: "Course search and purchase commands",
	Long:  "Search for courses, view details, and buy from the catalog",
}
