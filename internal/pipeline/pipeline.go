// Package pipeline turns one decoded source image into every configured
// output profile.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rm-hull/image-watermarker/internal/config"
	"github.com/rm-hull/image-watermarker/internal/models/manifest"
	"github.com/rm-hull/image-watermarker/internal/raster"
	"github.com/rm-hull/image-watermarker/internal/raster/stage"
	"github.com/rm-hull/image-watermarker/internal/watermark"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownWatermark = errors.New("unknown watermark")

// Exporter receives each finished rendition.
type Exporter interface {
	Export(ctx context.Context, profile config.Profile, buf *raster.Buffer) (*manifest.Output, error)
}

type Result struct {
	Profile config.Profile
	Buffer  *raster.Buffer
	Output  *manifest.Output
	Err     error
}

type Pipeline struct {
	profiles   []config.Profile
	watermarks watermark.Set
	anchor     raster.Anchor
	padding    int
	exporter   Exporter
}

// New builds a pipeline over a loaded watermark set. exporter may be nil, in
// which case results only carry the rendered buffers.
func New(profiles []config.Profile, watermarks watermark.Set, anchor raster.Anchor, padding int, exporter Exporter) *Pipeline {
	return &Pipeline{
		profiles:   profiles,
		watermarks: watermarks,
		anchor:     anchor,
		padding:    padding,
		exporter:   exporter,
	}
}

func (p *Pipeline) Profiles() []config.Profile {
	return p.profiles
}

func (p *Pipeline) stages(profile config.Profile) ([]raster.Stage, error) {
	stages := []raster.Stage{
		&stage.ResampleStage{Width: profile.MaxWidth, Height: profile.MaxHeight, Crop: profile.Crop},
	}
	if !profile.HasWatermark() {
		return stages, nil
	}

	mark, ok := p.watermarks.Get(profile.Watermark)
	if !ok {
		return nil, fmt.Errorf("%w: profile %s wants %q", ErrUnknownWatermark, profile.Name, profile.Watermark)
	}
	return append(stages, &stage.WatermarkStage{Mark: mark, Anchor: p.anchor, Padding: p.padding}), nil
}

// RunProfile renders a single profile. src is only read.
func (p *Pipeline) RunProfile(ctx context.Context, src *raster.Buffer, profile config.Profile) (*raster.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stages, err := p.stages(profile)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	buf, err := raster.Apply(src, stages...)
	if err != nil {
		return nil, fmt.Errorf("failed to render profile %s: %w", profile.Name, err)
	}

	log.Debug().
		Str("profile", profile.Name).
		Int("width", buf.Width()).
		Int("height", buf.Height()).
		Dur("took", time.Since(start)).
		Msg("profile rendered")

	return buf, nil
}

func (p *Pipeline) runOne(ctx context.Context, src *raster.Buffer, profile config.Profile) Result {
	result := Result{Profile: profile}

	result.Buffer, result.Err = p.RunProfile(ctx, src, profile)
	if result.Err != nil || p.exporter == nil {
		return result
	}

	result.Output, result.Err = p.exporter.Export(ctx, profile, result.Buffer)
	if result.Err != nil {
		result.Err = fmt.Errorf("failed to export profile %s: %w", profile.Name, result.Err)
	}
	return result
}

// Run renders every profile in order. Profiles are independent: a failure is
// recorded in its Result and the rest carry on. Cancellation is honoured
// between profiles; profiles not yet started are reported with the context
// error.
func (p *Pipeline) Run(ctx context.Context, src *raster.Buffer) ([]Result, error) {
	results := make([]Result, len(p.profiles))
	for i, profile := range p.profiles {
		results[i] = p.runOne(ctx, src, profile)
	}
	return results, joinErrors(results)
}

// RunConcurrent is Run with up to workers profiles rendered at once. Results
// keep profile order.
func (p *Pipeline) RunConcurrent(ctx context.Context, src *raster.Buffer, workers int) ([]Result, error) {
	results := make([]Result, len(p.profiles))

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, profile := range p.profiles {
		g.Go(func() error {
			results[i] = p.runOne(ctx, src, profile)
			return nil
		})
	}
	_ = g.Wait()

	return results, joinErrors(results)
}

// Outputs collects the exported outputs and failures of a run for a manifest.
func Outputs(results []Result) ([]manifest.Output, []manifest.Failure) {
	outputs := make([]manifest.Output, 0, len(results))
	var failures []manifest.Failure
	for _, r := range results {
		if r.Err != nil {
			failures = append(failures, manifest.Failure{Profile: r.Profile.Name, Error: r.Err.Error()})
			continue
		}
		if r.Output != nil {
			outputs = append(outputs, *r.Output)
		}
	}
	return outputs, failures
}

func joinErrors(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
