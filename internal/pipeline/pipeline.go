// Package pipeline builds one database per configured scenario from a
// baseline inventory.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	premise "github.com/polca/premise-sub000"
	"github.com/polca/premise-sub000/geo"
	"github.com/polca/premise-sub000/iam"
	"github.com/polca/premise-sub000/internal/audit"
	"github.com/polca/premise-sub000/internal/config"
	"github.com/polca/premise-sub000/internal/inventory"
	"github.com/polca/premise-sub000/internal/metrics"
	"github.com/polca/premise-sub000/sector"
	"github.com/polca/premise-sub000/transform"
	"golang.org/x/sync/errgroup"
)

// Result is the database built for one scenario.
type Result struct {
	Scenario   premise.Scenario
	Database   *premise.Database
	Unresolved int
	// Removed lists the duplicate datasets dropped after transformation
	Removed    []premise.Key
	AuditFiles []string
	// Output is the sqlite file the database was saved to, if any
	Output string
}

// Run transforms a clone of baseline for every scenario of cfg, running
// up to cfg.Transform.Parallel scenarios at once. The baseline is only
// read. An invalid configuration fails before any scenario starts. Results
// are in configuration order.
func Run(ctx context.Context, cfg *config.Config, baseline *premise.Database, source iam.Source) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	recorder := metrics.New()
	results := make([]Result, len(cfg.Scenarios))

	errg, errgctx := errgroup.WithContext(ctx)
	errg.SetLimit(max(1, cfg.Transform.Parallel))
	for i, sc := range cfg.Scenarios {
		errg.Go(func() error {
			result, err := runScenario(errgctx, cfg, sc, baseline, source, recorder)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}

	if cfg.Output.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return results, err
		}
	}
	return results, nil
}

func runScenario(ctx context.Context, cfg *config.Config, sc config.ScenarioConfig, baseline *premise.Database, source iam.Source, recorder *metrics.Recorder) (Result, error) {
	start := time.Now()
	scenario := sc.Scenario()
	fail := func(operation string, err error) (Result, error) {
		return Result{}, &premise.ScenarioErr{Scenario: scenario, Operation: operation, Err: err}
	}

	var cubeOpts []iam.CubeOption
	if cfg.IAM.Extrapolate {
		cubeOpts = append(cubeOpts, iam.WithExtrapolation())
	}
	variables := iam.DefaultVariables().Only(cfg.Transform.Sectors...)
	cube, err := iam.Fetch(ctx, source, scenario.Model, scenario.Pathway, cfg.IAM.Key(), variables, cubeOpts...)
	if err != nil {
		return fail("fetch iam data", err)
	}

	regions, err := geo.DefaultRegions(scenario.Model)
	if err != nil {
		return fail("build geomap", err)
	}
	geomap, err := geo.NewGeomap(scenario.Model, regions, geo.WithSourceVersion(cfg.Inventory.SourceVersion))
	if err != nil {
		return fail("build geomap", err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	db := baseline.Clone()
	db.Name = DatabaseName(baseline.Name, scenario)
	log := audit.NewLog(scenario)

	opts := []transform.Option{
		transform.WithCache(cfg.Transform.CacheSize),
		transform.WithAudit(log),
		transform.WithMetrics(recorder),
	}
	if cfg.Transform.DropUnresolved {
		opts = append(opts, transform.WithDropUnresolved())
	}
	if cfg.Transform.Intersection {
		opts = append(opts, transform.WithIntersection())
	}
	if len(cfg.Transform.FallbackLocations) > 0 {
		opts = append(opts, transform.WithFallbackLocations(cfg.Transform.FallbackLocations...))
	}
	transformer := transform.New(db, geomap, opts...)

	err = sector.Apply(&sector.Scenario{
		Scenario:      scenario,
		Cube:          cube,
		Transformer:   transformer,
		Consequential: sc.Consequential(),
		Horizon:       sc.Horizon,
		Lifetimes:     sector.DefaultLifetimes,
	}, cfg.Transform.Sectors...)
	if err != nil {
		return fail("transform", err)
	}

	result := Result{
		Scenario:   scenario,
		Database:   db,
		Unresolved: transformer.Unresolved(),
		Removed:    db.Deduplicate(),
	}

	if cfg.Output.AuditDir != "" {
		result.AuditFiles, err = log.WriteFiles(cfg.Output.AuditDir, start)
		if err != nil {
			return fail("write audit", err)
		}
	}

	if cfg.Output.Directory != "" {
		result.Output = filepath.Join(cfg.Output.Directory, FileName(scenario))
		if err := save(ctx, result.Output, db); err != nil {
			return fail("save database", err)
		}
	}

	recorder.ObserveScenario(scenario, time.Since(start))
	slog.Info("scenario done",
		"scenario", scenario.String(),
		"activities", db.Len(),
		"unresolved", result.Unresolved,
		"duplicates", len(result.Removed),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

// DatabaseName names the database built from baseline for scenario.
func DatabaseName(baseline string, scenario premise.Scenario) string {
	return fmt.Sprintf("%s_%s_%s_%d", baseline, strings.ToLower(scenario.Model), scenario.Pathway, scenario.Year)
}

// FileName is the sqlite file holding the database of scenario.
func FileName(scenario premise.Scenario) string {
	return fmt.Sprintf("%s_%s_%d.sqlite", strings.ToLower(scenario.Model), scenario.Pathway, scenario.Year)
}

func save(ctx context.Context, path string, db *premise.Database) error {
	store, err := inventory.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(ctx, db)
}
