package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	premise "github.com/polca/premise-sub000"
	"github.com/polca/premise-sub000/geo"
	"github.com/polca/premise-sub000/iam"
	"github.com/polca/premise-sub000/internal/config"
	"github.com/polca/premise-sub000/internal/inventory"
	"github.com/polca/premise-sub000/internal/must"
	"github.com/polca/premise-sub000/internal/pipeline"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	flagConfig := ""

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Transform the baseline inventory for every configured scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			baseline, err := loadBaseline(ctx, cfg.Inventory)
			if err != nil {
				return err
			}

			source, closeSource, err := pipeline.NewSource(ctx, cfg.IAM)
			if err != nil {
				return err
			}
			defer closeSource()

			results, err := pipeline.Run(ctx, cfg, baseline, source)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCENARIO\tACTIVITIES\tUNRESOLVED\tDUPLICATES\tOUTPUT")
			for _, result := range results {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", result.Scenario, result.Database.Len(), result.Unresolved, len(result.Removed), result.Output)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&flagConfig, "config", "c", "premise.toml", "run configuration file")
	return cmd
}

func loadBaseline(ctx context.Context, cfg config.InventoryConfig) (*premise.Database, error) {
	store, err := inventory.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	name, err := databaseName(ctx, store, cfg.Database)
	if err != nil {
		return nil, err
	}
	baseline, err := store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if cfg.Clean {
		inventory.Clean(baseline)
	}
	return baseline, nil
}

// databaseName returns name, or the only database of the store when name
// is empty.
func databaseName(ctx context.Context, store *inventory.Store, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	names, err := store.Databases(ctx)
	if err != nil {
		return "", err
	}
	if len(names) != 1 {
		return "", fmt.Errorf("%s holds %d databases %v, choose one", store.Path(), len(names), names)
	}
	return names[0], nil
}

func newRegionsCommand() *cobra.Command {
	flagModel := ""
	flagVersion := ""

	cmd := &cobra.Command{
		Use:   "regions [location...]",
		Short: "Map inventory locations to IAM regions, and IAM regions to the locations they contain",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := iam.NormalizeModel(flagModel)
			if err != nil {
				return err
			}
			regions, err := geo.DefaultRegions(model)
			if err != nil {
				return err
			}
			geomap, err := geo.NewGeomap(model, regions, geo.WithSourceVersion(flagVersion))
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = geomap.Index().QualifiedRegions()
			}
			return printRegions(cmd.OutOrStdout(), geomap, args)
		},
	}
	cmd.Flags().StringVarP(&flagModel, "model", "m", "remind", "iam model (remind, image)")
	cmd.Flags().StringVar(&flagVersion, "version", geo.DefaultSourceVersion, "inventory source version of the location names")
	return cmd
}

// printRegions prints a code naming both a region and an inventory
// location (ME under IMAGE) twice.
func printRegions(out io.Writer, geomap *geo.Geomap, locations []string) error {
	index := geomap.Index()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, location := range locations {
		if index.HasRegion(location) {
			fmt.Fprintf(w, "%s\tregion\t%v\n", geo.Unqualify(location), geomap.IAMToInventoryLocations(location, true))
		}
		if !index.IsRegion(location) {
			fmt.Fprintf(w, "%s\tlocation\t%s\n", location, geomap.InventoryToIAMLocation(location))
		}
	}
	return w.Flush()
}

func newInspectCommand() *cobra.Command {
	flagDB := ""
	flagDatabase := ""
	flagName := ""
	flagLocation := ""
	flagJSON := false

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the activities of a stored database matching a name and location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := inventory.Open(flagDB)
			if err != nil {
				return err
			}
			defer store.Close()

			name, err := databaseName(ctx, store, flagDatabase)
			if err != nil {
				return err
			}
			db, err := store.Load(ctx, name)
			if err != nil {
				return err
			}

			filters := []premise.Filter{premise.Contains(premise.FieldName, flagName)}
			if flagLocation != "" {
				filters = append(filters, premise.Equals(premise.FieldLocation, flagLocation))
			}
			activities := db.Select(filters...)
			if flagJSON {
				must.PrintJSON(cmd.OutOrStdout(), activities)
				return nil
			}
			return printActivities(cmd.OutOrStdout(), activities)
		},
	}
	cmd.Flags().StringVar(&flagDB, "db", "", "sqlite file")
	cmd.Flags().StringVar(&flagDatabase, "database", "", "database name, when the file holds several")
	cmd.Flags().StringVar(&flagName, "name", "", "part of the activity name")
	cmd.Flags().StringVar(&flagLocation, "location", "", "activity location")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "print activities as json")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func printActivities(out io.Writer, activities []*premise.Activity) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, a := range activities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Name, a.ReferenceProduct, a.Location, a.Code)
		for _, exc := range a.Exchanges {
			status := ""
			if exc.Unresolved {
				status = "unresolved"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%g %s\t%s\n", exc.Type, exc.Name, exc.Location, exc.Amount, exc.Unit, status)
		}
	}
	fmt.Fprintf(w, "%d activities\n", len(activities))
	return w.Flush()
}
