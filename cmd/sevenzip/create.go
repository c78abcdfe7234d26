package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sevenzip "github.com/withzombies/sevenz-rust2"
	"github.com/withzombies/sevenz-rust2/fsutil"
)

func newCreateCmd() *cobra.Command {
	var password string
	var solid bool
	var level uint32

	cmd := &cobra.Command{
		Use:   "create <archive.7z> <dir>",
		Short: "Create an archive from a directory tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archivePath, srcDir := args[0], args[1]

			wc, err := sevenzip.Create(archivePath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", archivePath, err)
			}

			if err := wc.SetSolid(solid); err != nil {
				wc.Close()
				return err
			}

			methods := []sevenzip.EncoderConfiguration{
				{Method: sevenzip.MethodLZMA2, Options: sevenzip.LZMA2OptionsFromLevel(level)},
			}
			if err := wc.SetContentMethods(methods); err != nil {
				wc.Close()
				return err
			}
			if password != "" {
				// AES-256 is configured through SetPassword, not as a
				// content method: only it can mint a fresh salt/IV per
				// block.
				if err := wc.SetPassword(sevenzip.NewPassword(password)); err != nil {
					wc.Close()
					return err
				}
			}

			log.Debugf("creating %s archive %s from %s", solidLabel(solid), archivePath, srcDir)

			if err := fsutil.CompressDir(&wc.Writer, srcDir); err != nil {
				wc.Close()
				return fmt.Errorf("compressing %s: %w", srcDir, err)
			}
			if err := wc.Finish(); err != nil {
				wc.Close()
				return err
			}
			return wc.Close()
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "encrypt content (and the header) with this password")
	cmd.Flags().BoolVar(&solid, "solid", false, "pack all entries into one solid block")
	cmd.Flags().Uint32Var(&level, "level", 6, "LZMA2 compression level, 0-9")
	return cmd
}

func solidLabel(solid bool) string {
	if solid {
		return "solid"
	}
	return "non-solid"
}
