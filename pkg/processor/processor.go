// Package processor consumes scrape run messages and drives the resolve and
// merge pipeline: offices first, then the per-office analysis merges.
package processor

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	analysisrepo "github.com/mkalnins/bryony/internal/repositories/analysis"
	officerepo "github.com/mkalnins/bryony/internal/repositories/office"
	bryonycontext "github.com/mkalnins/bryony/pkg/context"
	"github.com/mkalnins/bryony/pkg/events"
	"github.com/mkalnins/bryony/pkg/graph"
	"github.com/mkalnins/bryony/pkg/kafka"
	"github.com/mkalnins/bryony/pkg/models"
	"github.com/mkalnins/bryony/pkg/resolver"
	"github.com/mkalnins/bryony/pkg/tracing"
)

// Processor handles scrape run messages
type Processor struct {
	logger       ectologger.Logger
	officeRepo   *officerepo.Repository
	analysisRepo *analysisrepo.Repository
	resolver     *resolver.Resolver
	emitter      *events.Emitter
	projector    *graph.Projector
	workerCount  int
	historyMax   int
}

// NewProcessor creates a new scrape run processor. emitter and projector may
// be nil when the producer or graph database is disabled.
func NewProcessor(
	logger ectologger.Logger,
	officeRepo *officerepo.Repository,
	analysisRepo *analysisrepo.Repository,
	res *resolver.Resolver,
	emitter *events.Emitter,
	projector *graph.Projector,
	workerCount int,
	historyMax int,
) *Processor {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Processor{
		logger:       logger,
		officeRepo:   officeRepo,
		analysisRepo: analysisRepo,
		resolver:     res,
		emitter:      emitter,
		projector:    projector,
		workerCount:  workerCount,
		historyMax:   historyMax,
	}
}

// ProcessMessage handles one scrape run message end to end. Returning an
// error leaves the message uncommitted so the run is retried; the resolve
// and merge operations are idempotent, so a retry is safe.
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ProcessMessage")
	defer span.End()

	scrape := msg.Scrape
	if scrape == nil {
		if err := msg.ParseScrapeMessage(); err != nil {
			p.logger.WithContext(ctx).WithError(err).Error("Failed to parse scrape message")
			return err
		}
		scrape = msg.Scrape
	}

	ctx = bryonycontext.SetTenantID(ctx, scrape.TenantID)
	if scrape.RunID != "" {
		ctx = bryonycontext.SetScrapeRunID(ctx, scrape.RunID)
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":    scrape.TenantID,
		"run_id":       scrape.RunID,
		"office_count": len(scrape.Offices),
	})
	log.Info("Processing scrape run")

	merged, statuses, err := p.resolveOffices(ctx, scrape, log)
	if err != nil {
		return err
	}

	if err := p.emitter.OfficesResolved(ctx, scrape.TenantID, scrape.RunID, merged, statuses); err != nil {
		// Events are a downstream convenience; a publish failure must not
		// force a re-merge of an already persisted batch.
		log.WithError(err).Warn("Failed to publish office events")
	}

	if p.projector != nil {
		for _, office := range merged {
			if err := p.projector.ProjectOffice(ctx, office); err != nil {
				log.WithError(err).WithField("unique_id", office.UniqueID).Warn("Failed to project office")
			}
		}
	}

	if len(scrape.Analyses) > 0 {
		if err := p.mergeAnalyses(ctx, scrape, log); err != nil {
			return err
		}
	}

	log.Info("Scrape run processed")
	return nil
}

// resolveOffices matches the incoming batch against the stored set, merges,
// and persists the result. A lookup failure fails open: the batch is treated
// as all-new rather than dropped.
func (p *Processor) resolveOffices(ctx context.Context, scrape *kafka.ScrapeMessage, log ectologger.Logger) ([]models.Office, []models.OfficeStatus, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.resolveOffices")
	defer span.End()

	existing, err := p.officeRepo.ListAll(ctx, scrape.TenantID)
	if err != nil {
		log.WithError(err).Warn("Failed to load existing offices, treating batch as new")
		existing = nil
	}

	merged, statuses := p.resolver.ResolveOffices(existing, scrape.Offices)

	if err := p.officeRepo.UpsertBatch(ctx, scrape.TenantID, merged); err != nil {
		log.WithError(err).Error("Failed to persist resolved offices")
		return nil, nil, err
	}

	return merged, statuses, nil
}

// mergeAnalyses fans the per-office analysis merges out across a worker
// pool. Runs for different offices share no state, so they can proceed in
// parallel; the first error is returned after all workers drain.
func (p *Processor) mergeAnalyses(ctx context.Context, scrape *kafka.ScrapeMessage, log ectologger.Logger) error {
	ctx, span := tracing.StartSpan(ctx, "processor.mergeAnalyses")
	defer span.End()

	type job struct {
		officeID string
		input    models.AnalysisInput
	}

	jobs := make(chan job)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := p.mergeOfficeAnalysis(ctx, scrape, j.officeID, j.input); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}

	for officeID, input := range scrape.Analyses {
		jobs <- job{officeID: officeID, input: input}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		log.WithError(firstErr).Error("Analysis merge failed")
	}
	return firstErr
}

func (p *Processor) mergeOfficeAnalysis(ctx context.Context, scrape *kafka.ScrapeMessage, officeID string, input models.AnalysisInput) error {
	ctx, span := tracing.StartSpan(ctx, "processor.mergeOfficeAnalysis")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": scrape.TenantID,
		"office_id": officeID,
	})

	existing, err := p.analysisRepo.GetByOffice(ctx, scrape.TenantID, officeID)
	if err != nil {
		return err
	}

	analysisID := uuid.NewString()
	if existing != nil {
		analysisID = existing.AnalysisID
	}

	doc, feedback := p.resolver.ResolveAndMergeAnalysis(existing, input, analysisID)
	doc.TenantID = scrape.TenantID
	doc.OfficeID = officeID

	if err := p.analysisRepo.Upsert(ctx, scrape.TenantID, doc); err != nil {
		return err
	}

	if p.historyMax > 0 {
		if err := p.analysisRepo.TrimMergeHistory(ctx, scrape.TenantID, analysisID, p.historyMax); err != nil {
			log.WithError(err).Warn("Failed to trim merge history")
		}
	}

	if err := p.emitter.AnalysisMerged(ctx, scrape.TenantID, scrape.RunID, analysisID, feedback); err != nil {
		log.WithError(err).Warn("Failed to publish analysis event")
	}

	if p.projector != nil {
		if err := p.projector.ProjectAnalysis(ctx, scrape.TenantID, officeID, doc); err != nil {
			log.WithError(err).Warn("Failed to project analysis")
		}
	}

	log.WithFields(map[string]any{
		"projects_added":   feedback.Summary.TotalProjectsAdded,
		"projects_updated": feedback.Summary.TotalProjectsUpdated,
		"projects_blocked": feedback.Summary.TotalProjectsBlocked,
	}).Info("Analysis merged")

	return nil
}
