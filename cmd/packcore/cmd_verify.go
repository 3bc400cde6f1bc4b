package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/packcore/pkg/object"
	"github.com/odvcencio/packcore/pkg/packadapt"
)

func newVerifyCmd() *cobra.Command {
	var resolve bool

	cmd := &cobra.Command{
		Use:   "verify <pack-file>",
		Short: "Verify a pack file's checksum and entry framing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read pack file: %w", err)
			}

			if resolve {
				entries, err := object.ReadPackResolved(data, packadapt.NewSHA1Hasher(), packadapt.Inflate)
				if err != nil {
					return fmt.Errorf("resolve pack: %w", err)
				}
				slog.Info("pack resolved ok", "path", args[0], "entries", len(entries))
				return nil
			}

			pf, err := object.ReadPack(data, packadapt.NewSHA1Hasher(), packadapt.Inflate)
			if err != nil {
				return fmt.Errorf("read pack: %w", err)
			}
			slog.Info("pack verified ok", "path", args[0], "entries", len(pf.Entries), "checksum", pf.Checksum.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&resolve, "resolve", false, "resolve OFS_DELTA chains against earlier entries")
	return cmd
}
