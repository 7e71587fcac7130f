package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/ukydev/carmemo/internal/models"
)

func newCategoryCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "category [text...]",
		Short: "Map free-text categories onto the canonical set",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				for _, c := range models.CanonicalCategories {
					fmt.Fprintln(out, c)
				}
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("at least one category is required")
			}
			for _, raw := range args {
				fmt.Fprintf(out, "%s => %s\n", strings.TrimSpace(raw), maintenance.MapCategory(raw))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List the canonical categories")
	return cmd
}
