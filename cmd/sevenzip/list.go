package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sevenzip "github.com/withzombies/sevenz-rust2"
)

func newListCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "list <archive.7z>",
		Short: "List the entries in an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []sevenzip.ReaderOption
			if password != "" {
				opts = append(opts, sevenzip.WithPassword(password))
			}

			rc, err := sevenzip.OpenReader(args[0], opts...)
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer rc.Close()

			for _, e := range rc.Entries() {
				kind := "file"
				switch {
				case e.IsDir:
					kind = "dir"
				case e.IsAnti:
					kind = "anti"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %10d  %s\n", kind, e.Size, e.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "archive password, if encrypted")
	return cmd
}
