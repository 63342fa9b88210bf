package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newUploadCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Replace the staged dataset with the given .tif files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := setup(cmd)
			if err != nil {
				return err
			}

			var total int64
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				total += info.Size()
			}

			var bar *progressbar.ProgressBar
			if !quiet {
				bar = progressbar.NewOptions64(total,
					progressbar.OptionSetDescription("uploading"),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionShowBytes(true),
					progressbar.OptionSetWidth(30),
					progressbar.OptionClearOnFinish(),
				)
			}

			res, err := client.Upload(cmd.Context(), args, bar)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			for _, name := range res.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "disable the progress bar")
	return cmd
}
