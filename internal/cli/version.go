package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kerry-okpere/ai-video-conferencing/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the duo version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "duo %s (%s/%s)\n", version.Version, runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
