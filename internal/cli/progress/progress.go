// Package progress implements the learning-progress commands,
// including the offline spool that queues updates while the server is
// unreachable.
package progress

import "github.com/spf13/cobra"

var ProgressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Track chapter completion",
	Long:  "Mark chapters done, inspect a course's progress, and sync updates queued while offline.",
}
