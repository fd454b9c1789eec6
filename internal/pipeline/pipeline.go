// Package pipeline wires loading, hydrostatic integration, height
// interpolation and the forcing computations into the operations the
// command line exposes: whole-domain remapping, single-column forcing
// profiles, and trajectory back-tracing.
package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/ctessum/sparse"

	"github.com/san-kum/vremap/internal/config"
	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/derived"
	"github.com/san-kum/vremap/internal/forcing"
	"github.com/san-kum/vremap/internal/hydrostat"
	"github.com/san-kum/vremap/internal/levels"
	"github.com/san-kum/vremap/internal/logs"
	"github.com/san-kum/vremap/internal/remap"
	"github.com/san-kum/vremap/internal/store"
)

// Pipeline runs the processing stages described by one configuration.
type Pipeline struct {
	cfg *config.Config
	log *logs.Logger
	tbl *levels.Table
}

// New validates cfg and resolves the level coefficient table. log may be
// nil.
func New(cfg *config.Config, log *logs.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tbl := levels.Default()
	if cfg.LevelsTable != "" {
		var err error
		tbl, err = levels.Load(cfg.LevelsTable)
		if err != nil {
			return nil, err
		}
	}
	return &Pipeline{cfg: cfg, log: log, tbl: tbl}, nil
}

// prepare loads the input, restricts it to the configured domain and adds
// the hydrostatic profiles and potential temperature the later stages
// need. An all-zero domain keeps the full grid.
func (p *Pipeline) prepare(ctx context.Context, required ...string) (*dataset.Dataset, error) {
	ds, err := store.Load(ctx, p.cfg.Input, p.loadVars(required))
	if err != nil {
		return nil, err
	}
	ds.NormalizeLongitudes()
	if dom := p.cfg.Domain; dom != (config.DomainConfig{}) {
		sub, err := ds.Subset(dom.LatMin, dom.LatMax, normLon(dom.LonMin), normLon(dom.LonMax))
		if err != nil {
			return nil, err
		}
		p.log.Debugf("domain subset keeps %dx%d of %dx%d grid points",
			len(sub.Lat), len(sub.Lon), len(ds.Lat), len(ds.Lon))
		ds = sub
	}
	if err := hydrostat.AddProfiles(ctx, ds, p.tbl, p.cfg.Workers); err != nil {
		return nil, err
	}
	if err := derived.Compute(ds, "theta"); err != nil {
		return nil, err
	}
	return ds, nil
}

// Remap interpolates the prepared input onto the configured height grid
// and writes the result to the configured output.
func (p *Pipeline) Remap(ctx context.Context) (*dataset.Dataset, error) {
	src, err := p.prepare(ctx, "t", "q", "sp", "z", "lsm")
	if err != nil {
		return nil, err
	}
	r, err := remap.New(p.cfg.Heights.Levels(), p.cfg.Workers)
	if err != nil {
		return nil, err
	}
	out, err := r.Dataset(ctx, src)
	if err != nil {
		return nil, err
	}
	out.FixUnits()
	store.StampGlobals(out)
	p.log.Infof("remapped %d variables onto %d heights", len(out.Names()), len(out.Vertical))
	return out, p.save(out)
}

// Forcings builds the single-column forcing dataset: height-level
// profiles at the configured point, box means over the whole domain,
// horizontal gradients of the configured variables and the advective
// tendencies they imply.
func (p *Pipeline) Forcings(ctx context.Context) (*dataset.Dataset, error) {
	src, err := p.prepare(ctx, "t", "q", "sp", "z", "lsm", "u", "v")
	if err != nil {
		return nil, err
	}
	r, err := remap.New(p.cfg.Heights.Levels(), p.cfg.Workers)
	if err != nil {
		return nil, err
	}
	box, err := r.Dataset(ctx, src)
	if err != nil {
		return nil, err
	}

	fc := p.cfg.Forcing
	lon := normLon(fc.Lon)
	j, i, err := box.NearestColumn(fc.Lat, lon)
	if err != nil {
		return nil, err
	}
	p.log.Debugf("point (%g, %g) resolved to grid column (%g, %g)",
		fc.Lat, fc.Lon, box.Lat[j], box.Lon[i])
	out, err := box.Column(j, i)
	if err != nil {
		return nil, err
	}

	mask, err := p.mask(box)
	if err != nil {
		return nil, err
	}
	means, err := forcing.BoxMean(box, mask, forcing.AreaWeights(box.Lat))
	if err != nil {
		return nil, err
	}
	if err := mergeInto(out, means, "_mean"); err != nil {
		return nil, err
	}

	grads, err := forcing.Gradients(box, fc.Variables, forcing.GradientOptions{
		Strategy: fc.Strategy,
		Lat:      fc.Lat,
		Lon:      lon,
		Mask:     mask,
	})
	if err != nil {
		return nil, err
	}
	if err := mergeInto(out, grads, ""); err != nil {
		return nil, err
	}

	tend, err := forcing.Tendencies(out, fc.Variables, fc.UTraj, fc.VTraj, fc.Strategy == forcing.StrategyBoth)
	if err != nil {
		return nil, err
	}
	if err := mergeInto(out, tend, ""); err != nil {
		return nil, err
	}

	out.FixUnits()
	store.StampGlobals(out)
	p.log.Infof("forcing profiles hold %d variables on %d heights", len(out.Names()), len(out.Vertical))
	return out, p.save(out)
}

// loadVars merges the configured variable subset with the names a stage
// cannot run without. An empty configuration loads everything.
func (p *Pipeline) loadVars(required []string) []string {
	if len(p.cfg.Variables) == 0 {
		return nil
	}
	out := append([]string(nil), p.cfg.Variables...)
	have := make(map[string]bool, len(out))
	for _, name := range out {
		have[name] = true
	}
	for _, name := range required {
		if !have[name] {
			out = append(out, name)
		}
	}
	return out
}

// mask resolves the configured horizontal mask against the box dataset.
func (p *Pipeline) mask(box *dataset.Dataset) (*sparse.DenseArray, error) {
	switch p.cfg.Forcing.Mask {
	case "":
		return nil, nil
	case "ocean":
		return forcing.OceanMask(box)
	}
	return nil, fmt.Errorf("pipeline: unknown mask %q", p.cfg.Forcing.Mask)
}

func (p *Pipeline) save(ds *dataset.Dataset) error {
	if p.cfg.Output == "" {
		return nil
	}
	if err := store.Save(p.cfg.Output, ds); err != nil {
		return err
	}
	p.log.Infof("wrote %s", p.cfg.Output)
	return nil
}

// mergeInto copies every field of src into dst under its name plus
// suffix. The coordinates must already agree; Add revalidates shapes.
func mergeInto(dst, src *dataset.Dataset, suffix string) error {
	for _, f := range src.Fields() {
		err := dst.Add(&dataset.Field{
			Name:     f.Name + suffix,
			Dims:     append([]string(nil), f.Dims...),
			Units:    f.Units,
			LongName: f.LongName,
			Data:     f.Data,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// normLon maps one longitude onto the 0..360 convention that
// NormalizeLongitudes applies to the grid.
func normLon(lon float64) float64 {
	v := math.Mod(lon, 360)
	if v < 0 {
		v += 360
	}
	return v
}
