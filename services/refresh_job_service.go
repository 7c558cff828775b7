package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"screener_backend/models"
)

// Stage is one isolated unit of pipeline work. Run must honor ctx
// cancellation; a non-nil error (or a timeout) fails the whole refresh run.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// JobResult is the synchronous response to a start or reset request.
type JobResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Status  models.JobState `json:"status"`
}

// RefreshJobService serializes data refresh runs: at most one pipeline
// (fetch stage then process stage) is active process-wide, and every state
// transition is persisted through the JobStateStore before it becomes
// observable. Whether a run is active is always answered from persisted
// state, never from in-memory goroutine handles.
type RefreshJobService struct {
	store        JobStateStore
	fetchStage   Stage
	processStage Stage
	stageTimeout time.Duration
	mu           sync.Mutex
}

// NewRefreshJobService creates the refresh job orchestrator.
func NewRefreshJobService(store JobStateStore, fetch, process Stage, stageTimeout time.Duration) *RefreshJobService {
	return &RefreshJobService{
		store:        store,
		fetchStage:   fetch,
		processStage: process,
		stageTimeout: stageTimeout,
	}
}

// Status returns the persisted job state. Pure read, no side effects.
func (s *RefreshJobService) Status() (models.JobState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load()
}

// Start begins a new refresh run in the background. If a run is already
// active the request is rejected without mutating any state.
func (s *RefreshJobService) Start() JobResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.Load()
	if err != nil {
		return JobResult{Success: false, Message: fmt.Sprintf("failed to load job state: %v", err)}
	}
	if current.Running() {
		return JobResult{
			Success: false,
			Message: "A refresh job is already running",
			Status:  current,
		}
	}

	now := time.Now()
	state := models.JobState{
		Status:    models.JobStatusFetching,
		Phase:     "fetch",
		StartedAt: &now,
		Progress: models.JobProgress{
			CurrentPhase: "Fetching",
			Message:      "Incrementally updating price data for tracked symbols...",
		},
	}
	if err := s.store.Save(state); err != nil {
		return JobResult{Success: false, Message: fmt.Sprintf("failed to persist job state: %v", err)}
	}

	go s.runPipeline()

	return JobResult{
		Success: true,
		Message: "Data refresh job started",
		Status:  state,
	}
}

// Reset returns a finished (completed or failed) job to idle, preserving the
// last successful refresh time. Rejected while a run is active.
func (s *RefreshJobService) Reset() JobResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.Load()
	if err != nil {
		return JobResult{Success: false, Message: fmt.Sprintf("failed to load job state: %v", err)}
	}
	if current.Running() {
		return JobResult{
			Success: false,
			Message: "Cannot reset while job is running",
			Status:  current,
		}
	}

	state := models.IdleJobState(current.LastSuccessfulRefresh)
	if err := s.store.Save(state); err != nil {
		return JobResult{Success: false, Message: fmt.Sprintf("failed to persist job state: %v", err)}
	}
	return JobResult{
		Success: true,
		Message: "Job status reset to idle",
		Status:  state,
	}
}

// runPipeline executes the fetch and process stages in order. Errors never
// escape: every outcome lands in the persisted state.
func (s *RefreshJobService) runPipeline() {
	log.Printf("Starting %s stage...", s.fetchStage.Name)
	if err := s.runStage(s.fetchStage); err != nil {
		log.Printf("Refresh job failed: %v", err)
		s.markFailed(err.Error())
		return
	}
	log.Printf("%s stage completed successfully", s.fetchStage.Name)

	s.transition(func(state *models.JobState) {
		state.Status = models.JobStatusProcessing
		state.Phase = "process"
		state.Progress = models.JobProgress{
			CurrentPhase: "Processing",
			Message:      "Calculating technical indicators...",
		}
	})

	log.Printf("Starting %s stage...", s.processStage.Name)
	if err := s.runStage(s.processStage); err != nil {
		log.Printf("Refresh job failed: %v", err)
		s.markFailed(err.Error())
		return
	}
	log.Printf("%s stage completed successfully", s.processStage.Name)

	now := time.Now()
	s.transition(func(state *models.JobState) {
		state.Status = models.JobStatusCompleted
		state.Phase = "completed"
		state.CompletedAt = &now
		state.LastSuccessfulRefresh = &now
		state.Error = ""
		state.Progress = models.JobProgress{
			CurrentPhase: "Completed",
			Message:      "Data refresh completed successfully",
		}
	})
	log.Println("Data refresh job completed successfully")
}

// runStage runs one stage under its own hard timeout and contains panics.
func (s *RefreshJobService) runStage(stage Stage) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.stageTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%s stage panicked: %v", stage.Name, r)
			}
		}()
		done <- stage.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s failed: %w", stage.Name, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("job timed out during %s phase", stage.Name)
	}
}

// markFailed records a stage failure in the persisted state.
func (s *RefreshJobService) markFailed(message string) {
	now := time.Now()
	s.transition(func(state *models.JobState) {
		state.Status = models.JobStatusFailed
		state.Phase = "failed"
		state.CompletedAt = &now
		state.Error = message
		state.Progress = models.JobProgress{
			CurrentPhase: "Failed",
			Message:      message,
		}
	})
}

// transition loads the state, applies mutate, and persists the result under
// the service lock.
func (s *RefreshJobService) transition(mutate func(*models.JobState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load()
	if err != nil {
		log.Printf("Error loading job state: %v", err)
		state = models.JobState{Status: models.JobStatusIdle}
	}
	mutate(&state)
	if err := s.store.Save(state); err != nil {
		log.Printf("Error saving job state: %v", err)
	}
}
