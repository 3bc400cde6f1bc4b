package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/packcore/pkg/object"
	"github.com/odvcencio/packcore/pkg/packadapt"
	"github.com/odvcencio/packcore/pkg/packconfig"
)

func newPackCmd() *cobra.Command {
	var (
		outPath    string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "pack <dir> [flags]",
		Short: "Build a pack from a directory of <oid>.<kind> object files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := packconfig.Default()
			if configPath != "" {
				loaded, err := packconfig.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = loaded
			}

			records, err := loadRecords(args[0])
			if err != nil {
				return fmt.Errorf("load objects: %w", err)
			}
			slog.Info("loaded objects", "dir", args[0], "count", len(records))

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create pack file: %w", err)
			}
			defer out.Close()

			checksum, err := object.WritePack(out, records, packadapt.NewSHA1Hasher(), packadapt.Deflate, cfg.MaxIndexBytes)
			if err != nil {
				return fmt.Errorf("write pack: %w", err)
			}

			slog.Info("wrote pack", "path", outPath, "objects", len(records), "checksum", checksum.String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "out.pack", "output pack file path")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a packconfig TOML file")
	return cmd
}

// loadRecords scans dir for files named "<40-hex-oid>.<kind>" and builds
// an object.ObjectRecord for each, using the file's path (dir joined with
// the full "<oid>.<kind>" file name) as the heuristics' path hint.
func loadRecords(dir string) ([]*object.ObjectRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	source := packadapt.NewDirObjectSource(dir)
	var records []*object.ObjectRecord
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		hexPart, _, ok := strings.Cut(name, ".")
		if !ok || len(hexPart) != object.OIDSize*2 {
			continue
		}

		raw, err := hex.DecodeString(hexPart)
		if err != nil {
			continue
		}
		var oid object.OID
		copy(oid[:], raw)

		kind, payload, err := source.Read(oid)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		records = append(records, &object.ObjectRecord{
			OID:     oid,
			Kind:    kind,
			Payload: payload,
			Path:    filepath.Join(dir, name),
		})
	}
	return records, nil
}
