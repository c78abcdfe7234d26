package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	sevenzip "github.com/withzombies/sevenz-rust2"
	"github.com/withzombies/sevenz-rust2/fsutil"
)

func newExtractCmd() *cobra.Command {
	var password string
	var dest string
	var jobs int

	cmd := &cobra.Command{
		Use:   "extract <archive.7z>",
		Short: "Extract an archive's entries to a directory",
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

			if jobs <= 1 {
				log.Debugf("extracting %s to %s (single-threaded)", args[0], dest)
				return fsutil.ExtractAll(&rc.Reader, dest)
			}

			log.Debugf("extracting %s to %s across %d workers, by block", args[0], dest, jobs)
			return extractByBlock(&rc.Reader, dest, jobs)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "archive password, if encrypted")
	cmd.Flags().StringVarP(&dest, "output", "o", ".", "destination directory")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "number of blocks to decode concurrently")
	return cmd
}

// extractByBlock fans extraction out across one goroutine per block:
// distinct blocks decode independently, so this is safe; entries
// sharing a block are still written in ascending offset order within
// that block's single goroutine.
func extractByBlock(r *sevenzip.Reader, dest string, jobs int) error {
	byBlock := make(map[int][]*sevenzip.Entry)
	var loose []*sevenzip.Entry
	for _, e := range r.Entries() {
		if e.IsAnti {
			continue
		}
		if e.IsDir || e.BlockIndex() < 0 {
			loose = append(loose, e)
			continue
		}
		byBlock[e.BlockIndex()] = append(byBlock[e.BlockIndex()], e)
	}

	for _, e := range loose {
		if err := writePlaceholderEntry(dest, e); err != nil {
			return err
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(jobs)

	for i := 0; i < r.NumBlocks(); i++ {
		i := i
		entries, ok := byBlock[i]
		if !ok {
			continue
		}
		g.Go(func() error {
			return extractBlock(r, dest, i, entries)
		})
	}
	return g.Wait()
}

func writePlaceholderEntry(dest string, e *sevenzip.Entry) error {
	target := filepath.Join(dest, filepath.FromSlash(e.Name))
	if e.IsDir {
		return os.MkdirAll(target, 0o777)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
		return err
	}
	return os.WriteFile(target, nil, 0o666)
}

func extractBlock(r *sevenzip.Reader, dest string, blockIndex int, entries []*sevenzip.Entry) error {
	br, err := r.BlockReader(blockIndex)
	if err != nil {
		return fmt.Errorf("block %d: %w", blockIndex, err)
	}

	for _, e := range entries {
		target := filepath.Join(dest, filepath.FromSlash(e.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
			return err
		}

		f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
		if err != nil {
			return err
		}

		_, err = io.CopyN(f, br, int64(e.Size))
		closeErr := f.Close()
		if err != nil {
			return fmt.Errorf("block %d, entry %s: %w", blockIndex, e.Name, err)
		}
		if closeErr != nil {
			return closeErr
		}

		if !e.ModifiedAt.IsZero() {
			if err := os.Chtimes(target, e.ModifiedAt, e.ModifiedAt); err != nil {
				return err
			}
		}
	}
	return nil
}
