package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm"
)

var verifyAudition bool

func init() {
	exportCmd.Flags().BoolVar(&verifyAudition, "verify", false, "Listen back to the WAV rendering and report wrong pitches")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:       "export <midi|wav|spectrogram|all> <id>",
	Short:     "Export a stored analysis",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"midi", "wav", "spectrogram", "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var kinds []omrhythm.ExportKind
		if args[0] != "all" {
			kind, ok := omrhythm.ParseExportKind(args[0])
			if !ok {
				return fmt.Errorf("%w: %q", omrhythm.ErrUnknownExport, args[0])
			}
			kinds = append(kinds, kind)
		}

		svc := mustService()
		defer svc.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		paths, err := svc.ExportFiles(ctx, args[1], kinds...)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Printf("✅ Wrote %s\n", p)
		}

		if verifyAudition {
			mismatches, err := svc.VerifyAudition(ctx, args[1])
			if err != nil {
				return err
			}
			if len(mismatches) == 0 {
				fmt.Println("🔊 Audition matches the written pitches")
				return nil
			}
			for _, m := range mismatches {
				fmt.Printf("⚠️  at %s heard key %d, expected one of %v\n", m.Start, m.Heard, m.Expected)
			}
		}
		return nil
	},
}
