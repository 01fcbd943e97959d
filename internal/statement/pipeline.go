package statement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"contas/internal/core"
	"contas/internal/log"
)

// Result is the outcome of one batch.
type Result struct {
	BatchID  uuid.UUID
	Items    []UploadListItem
	Ignored  int
	Replaced int
}

// Months returns the distinct months of the batch in ascending order.
func (r Result) Months() []core.Month {
	var seen [core.MonthsPerYear + 1]bool
	for _, it := range r.Items {
		if it.Month.Valid() {
			seen[it.Month] = true
		}
	}
	var out []core.Month
	for m := core.January; m <= core.December; m++ {
		if seen[m] {
			out = append(out, m)
		}
	}
	return out
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *log.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithProgress registers a callback invoked after each file is parsed.
func WithProgress(fn func(UploadFile)) PipelineOption {
	return func(p *Pipeline) { p.progress = fn }
}

// Pipeline validates a batch of statement files, parses them through the
// Reader and normalizes every row with the session's Rules.
type Pipeline struct {
	reader   Reader
	logger   *log.Logger
	progress func(UploadFile)
}

func NewPipeline(reader Reader, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		reader: reader,
		logger: log.Default(log.ComponentStatement),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes files as one batch. Validation happens before any file is
// read; any validation or parse failure rejects the whole batch and no
// items are returned.
func (p *Pipeline) Run(ctx context.Context, files []UploadFile, rules Rules) (Result, error) {
	start := time.Now()
	batchID := uuid.New()
	logger := p.logger.With(log.FieldBatchID, batchID.String())

	if err := rules.Validate(); err != nil {
		logger.WarnContext(ctx, "Statement rules rejected",
			log.FieldOperation, log.OpValidate,
			log.FieldError, err)
		return Result{}, err
	}

	months, err := ValidateBatch(files)
	if err != nil {
		logger.WarnContext(ctx, "Statement batch rejected",
			log.FieldOperation, log.OpValidate,
			log.FieldFileCount, len(files),
			log.FieldError, err)
		return Result{}, err
	}

	res := Result{BatchID: batchID}
	var errs []error
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		rows, err := p.reader.Read(ctx, f.FileName, f.MIMEType, f.Data)
		if err != nil {
			errs = append(errs, &FileError{Index: f.Index, FileName: f.FileName, Err: err})
			continue
		}
		for _, row := range rows {
			title, outcome := rules.Apply(row.Title)
			switch outcome {
			case Ignored:
				res.Ignored++
				continue
			case Replaced:
				res.Replaced++
			}
			res.Items = append(res.Items, UploadListItem{
				Index:    f.Index,
				FileName: f.FileName,
				Month:    months[i],
				Paid:     f.Paid,
				Title:    title,
				Amount:   row.Amount,
				Date:     row.Date,
			})
		}
		logger.DebugContext(ctx, "Statement file parsed",
			log.FieldFileName, f.FileName,
			log.FieldMonth, months[i].Label(),
			log.FieldRowCount, len(rows))
		if p.progress != nil {
			p.progress(f)
		}
	}
	if len(errs) > 0 {
		err := fmt.Errorf("parse statements: %w", errors.Join(errs...))
		logger.ErrorContext(ctx, "Statement batch failed",
			log.FieldOperation, log.OpParse,
			log.FieldError, err)
		return Result{}, err
	}

	logger.InfoContext(ctx, "Statement batch processed",
		log.FieldOperation, log.OpImport,
		log.FieldFileCount, len(files),
		log.FieldRowCount, len(res.Items),
		"ignored", res.Ignored,
		"replaced", res.Replaced,
		log.FieldDuration, time.Since(start).Milliseconds())
	return res, nil
}
