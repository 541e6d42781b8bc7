package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/menta2k/listingkit/pkg/types"
)

// ProcessProjectAsync queues a batch run of a whole project and returns
// immediately. Runs for the same project are serialized.
func (pl *Pipeline) ProcessProjectAsync(ctx context.Context, projectIdx int, fn ProgressFunc) (*Job, error) {
	p, err := pl.Project(projectIdx)
	if err != nil {
		return nil, err
	}
	// images is fixed at construction, no lock needed
	if len(p.images) == 0 {
		return nil, ErrNoImages
	}

	job := newJob(ctx, projectIdx)
	err = pl.pool.Do(func() {
		report := Report{JobID: job.ID, Project: projectIdx, Total: len(p.images)}
		defer func() {
			if r := recover(); r != nil {
				pl.logger.Error("batch job panicked", zap.String("job", job.ID), zap.Any("panic", r))
				report.Errors = append(report.Errors, fmt.Sprintf("panic: %v", r))
				report.Status = StatusCancelled
			}
			job.finish(report)
		}()
		pl.runBatch(job, p, fn, &report)
	})
	if err != nil {
		job.cancel()
		return nil, err
	}
	return job, nil
}

// ProcessProject runs a batch and waits for it. When ctx ends the running
// job stops between images and its partial report is returned with ctx's
// error.
func (pl *Pipeline) ProcessProject(ctx context.Context, projectIdx int, fn ProgressFunc) (Report, error) {
	job, err := pl.ProcessProjectAsync(ctx, projectIdx, fn)
	if err != nil {
		return Report{}, err
	}
	<-job.Done()
	return job.report, ctx.Err()
}

// needsProcessing reports whether a batch run has to touch pi
func needsProcessing(pi *types.ProcessedImage, useSolidBG bool) bool {
	if pi == nil || !pi.IsReady() {
		return true
	}
	return !pi.IndividualOverride && pi.UseSolidBG != useSolidBG
}

func (pl *Pipeline) runBatch(job *Job, p *Project, fn ProgressFunc, report *Report) {
	start := time.Now()
	total := report.Total
	emitted := 0
	progress := func(current int, msg string) {
		emitted = current
		if fn != nil {
			fn(types.Progress{Current: current, Total: total, Message: msg})
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	solid := pl.UseSolidBG()
	pl.logger.Info("batch started",
		zap.String("job", job.ID),
		zap.String("project", p.name),
		zap.Int("images", total),
		zap.Bool("solid", solid))

	var pending []int
	for i := range p.images {
		if job.Cancelled() {
			break
		}
		progress(i+1, fmt.Sprintf("Processing image %d/%d", i+1, total))

		if i < len(p.processed) && !needsProcessing(p.processed[i], solid) {
			report.Skipped++
			report.Completed++
			continue
		}

		pi := p.entry(i, solid)
		var cutout *image.NRGBA
		if pi.State >= types.StateBackgroundRemoved && !pi.SkipBGRemoval {
			cutout = pi.NoBG
		}
		pi.Reset(solid)
		if cutout == nil {
			cutout = pl.extract(job.ctx, p.images[i], false)
			if job.Cancelled() {
				break
			}
		}
		pi.NoBG = cutout
		pi.State = types.StateBackgroundRemoved
		pending = append(pending, i)
	}

	if len(pending) > 0 && !solid {
		p.backgroundPath = ""
		var cutouts []image.Image
		for _, pi := range p.processed {
			if pi != nil && pi.NoBG != nil {
				cutouts = append(cutouts, pi.NoBG)
			}
		}
		if path, ok := pl.selector.FindBestBackgroundForProject(cutouts, pl.library.Items()); ok {
			p.backgroundPath = path
		}
	}

	bgs := make(map[string]image.Image)
	for _, i := range pending {
		pi := p.processed[i]
		if !pi.UseSolidBG {
			pi.BGPath = p.backgroundPath
		}
		pi.State = types.StateBackgroundResolved
		if err := pl.composite(pi, bgs); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Error processing image %d: %v", i+1, err))
		}
		report.Completed++
	}

	report.BackgroundPath = p.backgroundPath
	report.Duration = time.Since(start)
	if job.Cancelled() {
		report.Status = StatusCancelled
		// indices never go backwards; Report.Completed holds the real count
		progress(emitted, "Processing cancelled")
	} else {
		report.Status = StatusComplete
		progress(total, "Processing complete")
	}

	pl.logger.Info("batch finished",
		zap.String("job", job.ID),
		zap.String("status", string(report.Status)),
		zap.Int("completed", report.Completed),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", report.Duration))
}
