// Package library implements the commands over owned courses: the
// library listing and the purchase history behind it.
package library

import "github.com/spf13/cobra"

var LibraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Your owned courses",
	Long:  "List the courses you own and the transactions that paid for them.",
}
