// Command sevenzip is a thin CLI over the sevenz-rust2 library: list,
// extract and create 7z archives. It's a convenience surface, not
// something the library packages themselves depend on.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.New()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "sevenzip",
		Short:         "Read and write 7z archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetLevel(logrus.InfoLevel)
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print progress to stderr")

	root.AddCommand(newListCmd())
	root.AddCommand(newExtractCmd())
	root.AddCommand(newCreateCmd())
	return root
}
