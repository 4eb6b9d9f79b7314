// Package config holds the validated, structured form of the CLI
// flags described in spec.md §6, populated by internal/cmd from
// cobra flags bound through viper, generalized from the teacher's
// single string flags (cmd/commands.go's --input/--output/--shards)
// to a structured geometry block.
package config

import "github.com/j-stephan/ddafa/internal/ddferr"

// ROI is the optional axis-aligned clip a user may request, mirroring
// geometry.ROI but expressed at the configuration boundary so this
// package never has to import internal/geometry's voxel-index
// semantics directly.
type ROI struct {
	X1, X2 int
	Y1, Y2 int
	Z1, Z2 int
}

// Config is the fully-resolved set of parameters a reconstruction run
// needs, after flag parsing and validation.
type Config struct {
	InputDir  string
	OutputDir string
	Prefix    string

	NH, NV         int
	PitchH, PitchV float64
	DSO, DSD       float64
	DeltaPhi       float64
	NumProjections int

	ROI      *ROI
	EnableIO bool

	Debug bool
}

// Validate checks the geometry and ROI for internal consistency,
// returning a ddferr.ConstructionError on the first problem found —
// spec.md §7's "construction failure ... reported before any task
// runs."
func (c Config) Validate() error {
	switch {
	case c.InputDir == "":
		return ddferr.Construction("validate config", errMissing("--input"))
	case c.OutputDir == "":
		return ddferr.Construction("validate config", errMissing("--output"))
	case c.NH <= 0 || c.NV <= 0:
		return ddferr.Construction("validate config", errBadGeometry("--n-h/--n-v must be positive"))
	case c.PitchH <= 0 || c.PitchV <= 0:
		return ddferr.Construction("validate config", errBadGeometry("--pitch-h/--pitch-v must be positive"))
	case c.DSO <= 0 || c.DSD <= 0 || c.DSO >= c.DSD:
		return ddferr.Construction("validate config", errBadGeometry("require 0 < d-so < d-sd"))
	case c.NumProjections <= 0:
		return ddferr.Construction("validate config", errBadGeometry("--num-projections must be positive"))
	}

	if c.ROI != nil {
		r := c.ROI
		if r.X1 < 0 || r.Y1 < 0 || r.Z1 < 0 || r.X1 >= r.X2 || r.Y1 >= r.Y2 || r.Z1 >= r.Z2 {
			return ddferr.Construction("validate config", errBadGeometry("impossible ROI"))
		}
	}

	return nil
}

type errMissing string

func (e errMissing) Error() string { return "missing required flag " + string(e) }

type errBadGeometry string

func (e errBadGeometry) Error() string { return string(e) }
