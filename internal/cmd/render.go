package cmd

import (
	"context"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/terrainkit/internal/coordframe"
	"github.com/MeKo-Tech/terrainkit/internal/elevation"
	"github.com/MeKo-Tech/terrainkit/internal/export"
	"github.com/MeKo-Tech/terrainkit/internal/heightfield"
	"github.com/MeKo-Tech/terrainkit/internal/osmfeatures"
	"github.com/MeKo-Tech/terrainkit/internal/pipeline"
	"github.com/MeKo-Tech/terrainkit/internal/types"
	"github.com/MeKo-Tech/terrainkit/internal/worker"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a world region into a 3D-printable terrain scene",
	Long: `Fetch OSM features for a bounding box, sample elevation across it, and
run the full terrain pipeline (height field, solidification, buildings,
roads/bridges, water, green areas, POI markers, assembly), writing the
result as an STL or 3MF file.`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().String("bbox", "", "Bounding box: minLon,minLat,maxLon,maxLat (required)")
	renderCmd.Flags().StringP("output", "o", "scene.stl", "Output file path")
	renderCmd.Flags().String("format", "stl", "Output format: stl or 3mf")
	renderCmd.Flags().String("overpass-endpoint", "", "Overpass API endpoint (default: public instance)")
	renderCmd.Flags().Bool("synthetic-dem", true, "Use the deterministic synthetic elevation source (the only elevation source; setting this flag to false does not change it)")
	renderCmd.Flags().String("elevation-cache", "", "SQLite path to memoize elevation samples across runs (empty disables)")
	renderCmd.Flags().Int64("seed", 1, "Seed for the synthetic elevation source")
	renderCmd.Flags().Bool("allow-failures", false, "Continue even if the per-feature failure rate exceeds the configured threshold")
	renderCmd.Flags().Float64("failure-rate-threshold", 0.2, "Fraction of per-feature failures above which the run aborts unless --allow-failures is set")
	renderCmd.Flags().Bool("progress", true, "Show stage progress")
	renderCmd.Flags().String("debug-heightmap-png", "", "Directory to dump height-field debug PNGs per stage (empty disables)")
	renderCmd.Flags().IntP("workers", "w", 0, "Category-level worker count (0: one per feature category)")

	renderCmd.Flags().Int("resolution", 180, "Height-field nominal grid size (clamped 60-320)")
	renderCmd.Flags().Float64("z-scale", 1.0, "Vertical exaggeration")
	renderCmd.Flags().Float64("smoothing-sigma", 2.0, "Gaussian smoothing sigma applied to the height field (0 disables)")
	renderCmd.Flags().Float64("base-thickness-mm", 2.0, "Base solid thickness, millimeters")
	renderCmd.Flags().Float64("model-size-mm", 100, "Target model size, millimeters")
	renderCmd.Flags().Int("subdivision-levels", 0, "Triangle subdivision levels (0-2)")

	renderCmd.Flags().Bool("flatten-buildings", true, "Flatten the height field under building footprints before solidification")
	renderCmd.Flags().Bool("flatten-roads", false, "Flatten the height field under road footprints before solidification")
	renderCmd.Flags().Float64("flatten-road-quantile", 0.50, "Quantile used when flattening under road footprints")

	renderCmd.Flags().Float64("road-width-multiplier", 1.0, "Road width multiplier")
	renderCmd.Flags().Float64("road-height-mm", 150, "Road slab height, millimeters")
	renderCmd.Flags().Float64("road-embed-mm", 80, "Road embed depth, millimeters")

	renderCmd.Flags().Float64("building-min-height-m", 3.0, "Minimum building height, meters")
	renderCmd.Flags().Float64("building-height-multiplier", 1.0, "Building height multiplier")
	renderCmd.Flags().Float64("building-foundation-mm", 2.0, "Building foundation depth, millimeters")
	renderCmd.Flags().Float64("building-embed-mm", 5.0, "Building embed depth, millimeters")
	renderCmd.Flags().Float64("building-safety-margin-m", 0.05, "Building safety margin, meters")

	renderCmd.Flags().Float64("water-depth-m", 1.0, "Water depression depth, meters")
	renderCmd.Flags().Float64("water-thickness-m", 0.5, "Water slab thickness, meters")
	renderCmd.Flags().Float64("water-protrusion-m", 2.0, "Water surface protrusion above the depressed bed, meters")
	renderCmd.Flags().Float64("water-surface-quantile", 0.10, "Quantile used to set the pre-depression bank level")

	renderCmd.Flags().Float64("green-height-m", 0.3, "Green-area slab height, meters")
	renderCmd.Flags().Float64("green-embed-m", 0.02, "Green-area embed depth, meters")

	renderCmd.Flags().Float64("poi-height-m", 2.0, "POI marker height, meters")
	renderCmd.Flags().Float64("poi-embed-m", 0.1, "POI marker embed depth, meters")
	renderCmd.Flags().Int("poi-max", 600, "Maximum number of POI markers kept")

	bindFlags := []string{
		"bbox", "output", "format", "overpass-endpoint", "synthetic-dem", "elevation-cache",
		"seed", "allow-failures", "failure-rate-threshold", "progress", "debug-heightmap-png", "workers",
		"resolution", "z-scale", "smoothing-sigma", "base-thickness-mm", "model-size-mm", "subdivision-levels",
		"flatten-buildings", "flatten-roads", "flatten-road-quantile",
		"road-width-multiplier", "road-height-mm", "road-embed-mm",
		"building-min-height-m", "building-height-multiplier", "building-foundation-mm", "building-embed-mm", "building-safety-margin-m",
		"water-depth-m", "water-thickness-m", "water-protrusion-m", "water-surface-quantile",
		"green-height-m", "green-embed-m",
		"poi-height-m", "poi-embed-m", "poi-max",
	}
	for _, name := range bindFlags {
		if err := viper.BindPFlag("render."+name, renderCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
		}
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	bboxStr := viper.GetString("render.bbox")
	if bboxStr == "" {
		return fmt.Errorf("--bbox is required")
	}
	bounds, err := parseRenderBBox(bboxStr)
	if err != nil {
		return fmt.Errorf("invalid bbox: %w", err)
	}

	format := export.Format(strings.ToLower(viper.GetString("render.format")))
	if format != export.FormatSTL && format != export.FormatThreeMF {
		return fmt.Errorf("invalid format %q: must be 'stl' or '3mf'", format)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("fetching OSM features", "bounds", bounds.String())
	raw, err := fetchOverpass(bounds, viper.GetString("render.overpass-endpoint"))
	if err != nil {
		return fmt.Errorf("fetch OSM features: %w", err)
	}

	frame := coordframe.New(bounds)
	features := osmfeatures.Extract(frame, raw)
	logger.Info("classified features",
		"buildings", len(features.Buildings), "roads", len(features.Roads),
		"water", len(features.Water), "green", len(features.Green), "poi", len(features.POI))

	elevSource, closeSource, err := buildElevationSource()
	if err != nil {
		return err
	}
	defer closeSource()

	p := buildRenderParams()

	debugDir := viper.GetString("render.debug-heightmap-png")
	var dc *heightfield.DebugContext
	if debugDir != "" {
		dc = &heightfield.DebugContext{}
	}

	showProgress := viper.GetBool("render.progress")
	featureProgress := worker.NewProgressLabeled(5, showProgress, "feature categories")
	progress := pipeline.ProgressFunc(func(sp pipeline.StageProgress) {
		if sp.Stage == "features" {
			featureProgress.Update(sp.Completed, sp.Total, sp.Failed)
			if sp.Completed >= sp.Total {
				featureProgress.Done()
			}
			return
		}
		if showProgress {
			logger.Info("stage progress", "stage", sp.Stage, "completed", sp.Completed, "total", sp.Total, "failed", sp.Failed)
		}
	})

	result, warnings, err := pipeline.Run(ctx, pipeline.Input{Bounds: bounds, Features: features, Elevation: elevSource}, p, progress, dc, logger)
	if err != nil {
		return fmt.Errorf("render pipeline: %w", err)
	}

	if debugDir != "" {
		if err := dumpDebugStages(dc, debugDir); err != nil {
			return fmt.Errorf("write debug heightmap PNGs: %w", err)
		}
	}

	if len(warnings) > 0 {
		rate := float64(len(warnings)) / float64(max(1, len(features.Buildings)+len(features.Roads)+len(features.Water)+len(features.Green)+len(features.POI)))
		logger.Warn("per-feature warnings", "count", len(warnings), "rate", rate)
		if rate > viper.GetFloat64("render.failure-rate-threshold") && !viper.GetBool("render.allow-failures") {
			return fmt.Errorf("per-feature failure rate %.2f exceeds threshold (pass --allow-failures to continue anyway)", rate)
		}
	}

	outPath := viper.GetString("render.output")
	if err := export.WriteFile(result, format, outPath); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	logger.Info("scene written", "path", outPath, "format", format, "vertices", result.VertexCount(), "faces", result.FaceCount())
	return nil
}

// dumpDebugStages writes one PNG per captured height-field stage to dir,
// named by stage order and name (§ SUPPLEMENTED FEATURES: debug heightmap
// export, mirroring the teacher's DebugContext capture idiom).
func dumpDebugStages(dc *heightfield.DebugContext, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, stage := range dc.SortedStages() {
		path := filepath.Join(dir, stage.Name+".png")
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = png.Encode(f, stage.Image)
		closeErr := f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if closeErr != nil {
			return fmt.Errorf("%s: %w", path, closeErr)
		}
	}
	return nil
}

func fetchOverpass(bounds types.BoundingBox, endpoint string) (osmfeatures.RawElements, error) {
	if endpoint == "" {
		endpoint = "https://overpass-api.de/api/interpreter"
	}
	retry := overpass.DefaultRetryConfig()
	client := overpass.NewWithRetry(endpoint, 2, http.DefaultClient, retry)
	result, err := client.Query(osmfeatures.BuildQuery(bounds))
	if err != nil {
		return osmfeatures.RawElements{}, fmt.Errorf("overpass query failed: %w", err)
	}
	return osmfeatures.FromOverpassResult(&result), nil
}

func buildElevationSource() (pipeline.Sampler, func(), error) {
	seed := viper.GetInt64("render.seed")
	synthetic := elevation.DefaultSyntheticParams()
	synthetic.Seed = seed
	var source pipeline.Sampler = elevation.NewSynthetic(synthetic)

	cachePath := viper.GetString("render.elevation-cache")
	if cachePath == "" {
		return source, func() {}, nil
	}

	cache, err := elevation.NewCache(source, elevation.DefaultCacheConfig(cachePath))
	if err != nil {
		return nil, nil, fmt.Errorf("open elevation cache: %w", err)
	}
	return cache, func() { _ = cache.Close() }, nil
}

func buildRenderParams() pipeline.Params {
	p := pipeline.DefaultParams()

	p.Resolution = viper.GetInt("render.resolution")
	p.ZScale = viper.GetFloat64("render.z-scale")
	p.SmoothingSigma = viper.GetFloat64("render.smoothing-sigma")
	p.BaseThicknessMM = viper.GetFloat64("render.base-thickness-mm")
	p.ModelSizeMM = viper.GetFloat64("render.model-size-mm")
	p.SubdivisionLevels = viper.GetInt("render.subdivision-levels")
	p.Workers = viper.GetInt("render.workers")

	p.FlattenBuildings = viper.GetBool("render.flatten-buildings")
	p.FlattenRoads = viper.GetBool("render.flatten-roads")
	p.FlattenRoadQuantile = viper.GetFloat64("render.flatten-road-quantile")

	p.Road.WidthMultiplier = viper.GetFloat64("render.road-width-multiplier")
	p.Road.HeightMM = viper.GetFloat64("render.road-height-mm")
	p.Road.EmbedMM = viper.GetFloat64("render.road-embed-mm")

	p.Building.MinHeightM = viper.GetFloat64("render.building-min-height-m")
	p.Building.HeightMultiplier = viper.GetFloat64("render.building-height-multiplier")
	p.Building.FoundationMM = viper.GetFloat64("render.building-foundation-mm")
	p.Building.EmbedMM = viper.GetFloat64("render.building-embed-mm")
	p.Building.SafetyMarginM = viper.GetFloat64("render.building-safety-margin-m")

	p.WaterDepthM = viper.GetFloat64("render.water-depth-m")
	p.Water.ThicknessM = viper.GetFloat64("render.water-thickness-m")
	p.Water.ProtrusionM = viper.GetFloat64("render.water-protrusion-m")
	p.WaterSurfaceQuantile = viper.GetFloat64("render.water-surface-quantile")

	p.Green.HeightM = viper.GetFloat64("render.green-height-m")
	p.Green.EmbedM = viper.GetFloat64("render.green-embed-m")

	p.POI.HeightM = viper.GetFloat64("render.poi-height-m")
	p.POI.EmbedM = viper.GetFloat64("render.poi-embed-m")
	p.POI.MaxCount = viper.GetInt("render.poi-max")

	return p
}

func parseRenderBBox(s string) (types.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return types.BoundingBox{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}
	var v [4]float64
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return types.BoundingBox{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		v[i] = val
	}
	bounds := types.BoundingBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if !bounds.Valid() {
		return types.BoundingBox{}, fmt.Errorf("minLon/minLat must be < maxLon/maxLat")
	}
	return bounds, nil
}
