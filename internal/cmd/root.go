// Package cmd wires the CLI surface described in spec.md §6 using
// cobra + viper, the way the teacher's cmd/commands.go binds its own
// flags, generalized from a handful of string flags to the structured
// detector-geometry block the reconstruction engine needs.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/j-stephan/ddafa/internal/config"
	"github.com/j-stephan/ddafa/internal/engine"
	"github.com/j-stephan/ddafa/internal/log"
)

var (
	inputDir, outputDir, prefix string
	nH, nV                      int
	pitchH, pitchV              float64
	dso, dsd                    float64
	deltaPhi                    float64
	numProjections              int
	roiFlag                     []int
	enableIO                    bool
	debug                       bool

	rootCmd = &cobra.Command{
		Use:   "ddafa",
		Short: "Cone-beam FDK reconstruction engine",
		Long: `ddafa reconstructs a 3-D volume from a sequence of cone-beam
projection images using the Feldkamp-Davis-Kress algorithm, spreading
the work across every OpenCL accelerator present on the host.`,
		RunE: run,
	}
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&inputDir, "input", "i", "", "directory containing input projections")
	flags.StringVarP(&outputDir, "output", "o", "", "directory to write reconstructed slices to")
	flags.StringVar(&prefix, "prefix", "slice", "filename prefix for output slices")
	flags.IntVar(&nH, "n-h", 0, "detector columns")
	flags.IntVar(&nV, "n-v", 0, "detector rows")
	flags.Float64Var(&pitchH, "pitch-h", 0, "detector column pitch, mm")
	flags.Float64Var(&pitchV, "pitch-v", 0, "detector row pitch, mm")
	flags.Float64Var(&dso, "d-so", 0, "source-to-isocenter distance, mm")
	flags.Float64Var(&dsd, "d-sd", 0, "source-to-detector distance, mm")
	flags.Float64Var(&deltaPhi, "delta-phi", 0, "angular step between projections, radians")
	flags.IntVar(&numProjections, "num-projections", 0, "number of projections to read")
	flags.IntSliceVar(&roiFlag, "roi", nil, "optional ROI as x1,x2,y1,y2,z1,z2")
	flags.BoolVar(&enableIO, "enable-io", true, "perform projection I/O and reconstruction (disable for dry-run geometry checks)")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")

	for _, name := range []string{"input", "output", "n-h", "n-v", "pitch-h", "pitch-v", "d-so", "d-sd", "delta-phi", "num-projections"} {
		_ = rootCmd.MarkFlagRequired(name)
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// Execute runs the root command; it is the sole entry point called
// from cmd/ddafa/main.go.
func Execute() error {
	return rootCmd.Execute()
}

func run(c *cobra.Command, _ []string) error {
	log.Init(debug)

	cfg := config.Config{
		InputDir:       inputDir,
		OutputDir:      outputDir,
		Prefix:         prefix,
		NH:             nH,
		NV:             nV,
		PitchH:         pitchH,
		PitchV:         pitchV,
		DSO:            dso,
		DSD:            dsd,
		DeltaPhi:       deltaPhi,
		NumProjections: numProjections,
		ROI:            roiFromFlag(roiFlag),
		EnableIO:       enableIO,
		Debug:          debug,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return engine.Run(context.Background(), cfg)
}

func roiFromFlag(v []int) *config.ROI {
	if len(v) == 0 {
		return nil
	}
	if len(v) != 6 {
		return nil
	}
	return &config.ROI{X1: v[0], X2: v[1], Y1: v[2], Y2: v[3], Z1: v[4], Z2: v[5]}
}
