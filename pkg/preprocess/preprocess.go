// Package preprocess runs the filtering pipeline over subjects.
//
// For each subject the T1 image goes through normalization, skull stripping
// and registration (each stage can be switched off), and the ground truth is
// registered into atlas space with label-preserving interpolation. Subjects
// are independent and are processed concurrently.
package preprocess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mialab/internal/models"
	"mialab/pkg/filtering"
	"mialab/pkg/logging"
)

// ErrInvalidSubject is returned when a subject lacks an image a stage needs
var ErrInvalidSubject = errors.New("invalid subject")

// Options selects the preprocessing stages
type Options struct {
	Normalize  bool
	SkullStrip bool
	Register   bool

	// Workers bounds the number of subjects processed at once; zero uses all CPUs
	Workers int
}

// DefaultOptions enables every stage.
func DefaultOptions() Options {
	return Options{
		Normalize:  true,
		SkullStrip: true,
		Register:   true,
		Workers:    runtime.NumCPU(),
	}
}

// Result holds the preprocessed images of one subject
type Result struct {
	RunID       string
	SubjectID   string
	T1          *models.Image
	GroundTruth *models.Image
	Duration    time.Duration
}

// Preprocessor applies the configured stages to subjects
type Preprocessor struct {
	opts   Options
	logger *slog.Logger
}

// NewPreprocessor creates a preprocessor. A nil logger discards all output.
func NewPreprocessor(opts Options, logger *slog.Logger) *Preprocessor {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Preprocessor{opts: opts, logger: logging.OrDiscard(logger)}
}

// Process preprocesses a single subject under a fresh run ID.
func (p *Preprocessor) Process(ctx context.Context, subject models.Subject) (Result, error) {
	return p.process(ctx, uuid.NewString(), subject)
}

// ProcessAll preprocesses subjects concurrently. Results are returned in input
// order. The first fatal error cancels the remaining subjects.
func (p *Preprocessor) ProcessAll(ctx context.Context, subjects []models.Subject) ([]Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With(slog.String("run_id", runID))
	logger.Info("preprocessing subjects",
		slog.Int("subjects", len(subjects)),
		slog.Int("workers", p.opts.Workers))

	results := make([]Result, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i, subject := range subjects {
		g.Go(func() error {
			res, err := p.process(gctx, runID, subject)
			if err != nil {
				return fmt.Errorf("subject %s: %w", subject.ID, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Preprocessor) process(ctx context.Context, runID string, subject models.Subject) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if subject.T1 == nil {
		return Result{}, fmt.Errorf("%w: %s has no T1 image", ErrInvalidSubject, subject.ID)
	}

	logger := p.logger.With(slog.String("run_id", runID), slog.String("subject", subject.ID))
	start := time.Now()

	pipeline := p.buildPipeline(subject, logger)
	logger.Debug("running pipeline", slog.String("pipeline", pipeline.String()))

	t1, err := pipeline.Execute(subject.T1)
	if err != nil {
		return Result{}, fmt.Errorf("T1 pipeline: %w", err)
	}

	truth := subject.GroundTruth
	if p.opts.Register && truth != nil {
		truth, err = filtering.NewImageRegistration(logger).Execute(truth, &filtering.ImageRegistrationParams{
			Atlas:         subject.Atlas,
			Transform:     subject.Transform,
			IsGroundTruth: true,
		})
		if err != nil {
			return Result{}, fmt.Errorf("ground truth registration: %w", err)
		}
	}

	res := Result{
		RunID:       runID,
		SubjectID:   subject.ID,
		T1:          t1,
		GroundTruth: truth,
		Duration:    time.Since(start),
	}
	logger.Info("subject preprocessed",
		slog.Duration("duration", res.Duration),
		slog.Any("size", t1.Size),
		slog.String("pixel_type", t1.PixelType.String()))

	return res, nil
}

// buildPipeline assembles the enabled stages in their fixed order.
func (p *Preprocessor) buildPipeline(subject models.Subject, logger *slog.Logger) *filtering.Pipeline {
	pipeline := filtering.NewPipeline()
	if p.opts.Normalize {
		pipeline.Add(filtering.NewImageNormalization(logger), nil)
	}
	if p.opts.SkullStrip {
		var params filtering.Params
		if subject.BrainMask != nil {
			params = &filtering.SkullStrippingParams{Mask: subject.BrainMask}
		}
		pipeline.Add(filtering.NewSkullStripping(logger), params)
	}
	if p.opts.Register {
		pipeline.Add(filtering.NewImageRegistration(logger), &filtering.ImageRegistrationParams{
			Atlas:     subject.Atlas,
			Transform: subject.Transform,
		})
	}
	return pipeline
}
