package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"farrelnajib/ai-hiring/internal/models"
	"farrelnajib/ai-hiring/internal/repositories"
)

// Candidates scoring at or above this job-match score unlock the voice
// interview stage.
const interviewEligibilityThreshold = 60

// Worker evaluates queued applications asynchronously: a channel-fed pool
// plus a poller that re-enqueues anything still queued (missed enqueues,
// process restarts).
type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueApplication(appID uuid.UUID)
}

type worker struct {
	appRepo     repositories.ApplicationRepository
	jobRepo     repositories.JobRepository
	pipeline    PipelineService
	index       CandidateIndexService
	jobQueue    chan uuid.UUID
	concurrency int
	wg          sync.WaitGroup
	stopChan    chan struct{}
}

func NewWorker(
	appRepo repositories.ApplicationRepository,
	jobRepo repositories.JobRepository,
	pipeline PipelineService,
	index CandidateIndexService,
	concurrency int,
) Worker {
	return &worker{
		appRepo:     appRepo,
		jobRepo:     jobRepo,
		pipeline:    pipeline,
		index:       index,
		jobQueue:    make(chan uuid.UUID, 100),
		concurrency: concurrency,
		stopChan:    make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	log.Printf("🚀 Starting worker with %d concurrent workers\n", w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processApplications(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingApplications(ctx)

	log.Println("✅ Worker started successfully")
}

// Stop implements Worker.
func (w *worker) Stop() {
	log.Println("🛑 Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	log.Println("✅ Worker stopped")
}

// EnqueueApplication implements Worker.
func (w *worker) EnqueueApplication(appID uuid.UUID) {
	select {
	case w.jobQueue <- appID:
		log.Printf("📥 Application %s enqueued\n", appID)
	case <-w.stopChan:
		log.Printf("⚠️  Worker stopped, cannot enqueue application %s\n", appID)
	}
}

func (w *worker) processApplications(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log.Printf("🚀 Worker %d started processing applications\n", workerID)

	for {
		select {
		case <-w.stopChan:
			log.Printf("👷 Worker #%d stopped\n", workerID)
			return
		case appID := <-w.jobQueue:
			log.Printf("👷 Worker #%d processing application %s\n", workerID, appID)
			if err := w.evaluateApplication(ctx, appID); err != nil {
				log.Printf("❌ Worker #%d failed to process application %s: %v\n", workerID, appID, err)
			} else {
				log.Printf("✅ Worker #%d completed application %s\n", workerID, appID)
			}
		}
	}
}

// evaluateApplication runs the full pipeline for one application and writes
// the outcome back. Any failure marks the application failed with the
// stage-tagged error message.
func (w *worker) evaluateApplication(ctx context.Context, appID uuid.UUID) error {
	application, err := w.appRepo.FindByID(appID)
	if err != nil {
		return err
	}

	if application.Status != models.StatusQueued {
		log.Printf("⏭️  Application %s is %s, skipping\n", appID, application.Status)
		return nil
	}

	job, err := w.jobRepo.FindByID(application.JobID)
	if err != nil {
		if updateErr := w.appRepo.UpdateError(appID, err.Error()); updateErr != nil {
			log.Printf("⚠️  Failed to mark application %s failed: %v\n", appID, updateErr)
		}
		return err
	}

	if err := w.appRepo.UpdateStatus(appID, models.StatusProcessing); err != nil {
		return err
	}

	result, err := w.pipeline.EvaluateFile(ctx, application.ResumePath, job)
	if err != nil {
		if updateErr := w.appRepo.UpdateError(appID, err.Error()); updateErr != nil {
			log.Printf("⚠️  Failed to mark application %s failed: %v\n", appID, updateErr)
		}
		return err
	}

	update := &repositories.EvaluationUpdateData{
		ResumeText:         result.ResumeText,
		Profile:            result.Profile,
		ResumeQualityScore: result.ResumeQualityScore,
		JobMatchScore:      result.JobMatchScore,
		Analysis:           result.Analysis,
		InterviewEligible:  result.JobMatchScore >= interviewEligibilityThreshold,
	}

	if err := w.appRepo.UpdateEvaluation(appID, update); err != nil {
		return err
	}

	// Best effort: the evaluation stands even if indexing fails
	if w.index != nil {
		if err := w.index.IndexCandidate(ctx, appID, result.ResumeText); err != nil {
			log.Printf("⚠️  Failed to index candidate %s: %v\n", appID, err)
		}
	}

	return nil
}

func (w *worker) pollPendingApplications(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	log.Println("🔄 Starting pending applications poller")

	for {
		select {
		case <-w.stopChan:
			log.Println("🔄 Pending applications poller stopped")
			return
		case <-ticker.C:
			pending, err := w.appRepo.FindPendingApplications(10)
			if err != nil {
				log.Printf("⚠️  Failed to fetch pending applications: %v\n", err)
				continue
			}

			if len(pending) > 0 {
				log.Printf("📋 Found %d pending applications\n", len(pending))
			}

			for _, app := range pending {
				w.EnqueueApplication(app.ID)
			}
		}
	}
}
