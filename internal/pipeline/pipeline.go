package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dealcurator/dealcurator-backend/internal/telemetry"
)

// Stage is one batch step of the curation pipeline.
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner executes the stages in order. A stage failure never blocks the
// stages after it: later stages work off persisted state, not the failed
// stage's output.
type Runner struct {
	stages []Stage
}

func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

// Run executes one full pass and returns the joined stage errors, so the
// scheduler can decide whether to alert or rerun.
func (r *Runner) Run(ctx context.Context) error {
	var errs []error
	for _, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		start := time.Now()
		err := stage.Run(ctx)
		elapsed := time.Since(start)
		telemetry.RecordStage(stage.Name(), elapsed, err)

		if err != nil {
			kind := "failed"
			if IsTransient(err) {
				kind = "failed (transient)"
			}
			log.Printf("[pipeline] stage %s %s after %s: %v", stage.Name(), kind, elapsed.Round(time.Millisecond), err)
			errs = append(errs, fmt.Errorf("stage %s: %w", stage.Name(), err))
			continue
		}
		log.Printf("[pipeline] stage %s completed in %s", stage.Name(), elapsed.Round(time.Millisecond))
	}
	return errors.Join(errs...)
}
