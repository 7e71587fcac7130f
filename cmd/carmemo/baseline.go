package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/carmemo/internal/models"
)

func newBaselineCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Dump or restore the baseline schedule store",
	}
	cmd.AddCommand(newBaselineExportCmd(opts), newBaselineImportCmd(opts))
	return cmd
}

func newBaselineExportCmd(opts *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored baseline as a JSON object keyed by make_model_year",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			all, err := a.baselines.All(ctx)
			if err != nil {
				return fmt.Errorf("read baselines: %w", err)
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(all); err != nil {
				return err
			}
			log.WithFields(log.Fields{"store": cfg.Baseline.Store, "count": len(all)}).Info("Baselines exported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (defaults to stdout)")
	return cmd
}

func newBaselineImportCmd(opts *rootOptions) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the stored baselines with a previously exported file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(inPath)
			if err != nil {
				return err
			}
			var all map[string]models.BaselineSchedule
			if err := json.Unmarshal(data, &all); err != nil {
				return fmt.Errorf("parse %s: %w", inPath, err)
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if err := a.baselines.Replace(ctx, all); err != nil {
				return fmt.Errorf("write baselines: %w", err)
			}
			log.WithFields(log.Fields{"store": cfg.Baseline.Store, "count": len(all)}).Info("Baselines imported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "Exported baselines file")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
