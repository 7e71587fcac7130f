package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/ukydev/carmemo/internal/models"
	"github.com/zoobzio/clockz"
)

func newForecastCmd(opts *rootOptions) *cobra.Command {
	var (
		vehicle models.Vehicle
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print the maintenance forecast for a make, model and year",
		Example: `  carmemo forecast --make Toyota --model Camry --year 2020 --distance 52000
  carmemo forecast --make Honda --model Civic --year 2018 --distance 90000 --daily 55 --json`,
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

			if !cmd.Flags().Changed("initial") {
				vehicle.InitialDistance = vehicle.CurrentDistance
			}
			vehicle.Normalize()

			mapper := maintenance.NewCategoryMapper(false)
			defer mapper.Close()
			plan, err := a.planner(a.resolver(), mapper, clockz.RealClock).Schedule(ctx, vehicle)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}
			return writePlan(cmd.OutOrStdout(), plan, vehicle.DistanceUnit)
		},
	}

	f := cmd.Flags()
	f.StringVar(&vehicle.Make, "make", "", "Vehicle make")
	f.StringVar(&vehicle.Model, "model", "", "Vehicle model")
	f.IntVar(&vehicle.Year, "year", 0, "Model year")
	f.Float64Var(&vehicle.CurrentDistance, "distance", 0, "Current odometer reading")
	f.Float64Var(&vehicle.InitialDistance, "initial", 0, "Odometer reading when tracking started (defaults to --distance)")
	f.Float64Var(&vehicle.AverageDailyDistance, "daily", 0, "Average distance driven per day")
	f.StringVar(&vehicle.DistanceUnit, "unit", models.UnitKilometers, "Distance unit (km or mi)")
	f.BoolVar(&asJSON, "json", false, "Print the plan as JSON")
	_ = cmd.MarkFlagRequired("make")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func writePlan(out io.Writer, plan *maintenance.Plan, unit string) error {
	fmt.Fprintf(out, "Baseline %s, horizon %.0f %s\n\n", plan.BaselineKey, plan.Horizon, unit)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tCATEGORY\tDUE AT\tDUE DATE\tIMPORTANCE\tSOON")
	for _, t := range plan.Tasks {
		if !t.IsForecast {
			continue
		}
		due, date, soon := "-", "-", ""
		if t.DueDistance != nil {
			due = strconv.FormatFloat(*t.DueDistance, 'f', 0, 64)
		}
		if t.DueDate != nil {
			date = t.DueDate.Format("2006-01-02")
		}
		if t.DueSoon {
			soon = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.Title, t.Category, due, date, t.Importance, soon)
	}
	return tw.Flush()
}
