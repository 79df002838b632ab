package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"farrelnajib/ai-hiring/internal/config"
	"farrelnajib/ai-hiring/internal/models"
	"farrelnajib/ai-hiring/internal/repositories"
)

type fakeJudge struct {
	analysis models.AnswerAnalysis
	scored   atomic.Int32
}

func (f *fakeJudge) GenerateQuestions(ctx context.Context, profile *models.CandidateProfile, job *models.Job, count int) []string {
	questions := make([]string, count)
	for i := range questions {
		questions[i] = fmt.Sprintf("Question %d?", i+1)
	}
	return questions
}

func (f *fakeJudge) ScoreAnswer(ctx context.Context, question, answer string, profile *models.CandidateProfile, job *models.Job) models.AnswerAnalysis {
	f.scored.Add(1)
	return f.analysis
}

type fakeSynth struct{}

func (fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte("audio"), nil
}

type instantSink struct{}

func (instantSink) Play(ctx context.Context, audio []byte) error {
	return nil
}

type fakeStream struct {
	stopped atomic.Bool
}

func (s *fakeStream) Stop() {
	s.stopped.Store(true)
}

type fakeDevices struct {
	stream *fakeStream
}

func (d *fakeDevices) Acquire(ctx context.Context) (MediaStream, error) {
	return d.stream, nil
}

// fakeInterviewRepo records interview writes and enforces the same
// single-shot guard the real repository does.
type fakeInterviewRepo struct {
	mu        sync.Mutex
	saves     int
	lastScore int
	lastData  *models.InterviewData
}

func (r *fakeInterviewRepo) Create(app *models.Application) error { return nil }

func (r *fakeInterviewRepo) FindByID(id uuid.UUID) (*models.Application, error) {
	return nil, fmt.Errorf("not implemented")
}
func (r *fakeInterviewRepo) ExistsForJob(jobID uuid.UUID, email string) (bool, error) {
	return false, nil
}
func (r *fakeInterviewRepo) UpdateStatus(id uuid.UUID, status models.ApplicationStatus) error {
	return nil
}
func (r *fakeInterviewRepo) UpdateEvaluation(id uuid.UUID, data *repositories.EvaluationUpdateData) error {
	return nil
}
func (r *fakeInterviewRepo) UpdateError(id uuid.UUID, msg string) error { return nil }
func (r *fakeInterviewRepo) FindPendingApplications(limit int) ([]models.Application, error) {
	return nil, nil
}

func (r *fakeInterviewRepo) SaveInterviewResult(id uuid.UUID, score int, data *models.InterviewData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saves > 0 {
		return fmt.Errorf("interview result already recorded")
	}
	r.saves++
	r.lastScore = score
	r.lastData = data
	return nil
}

func (r *fakeInterviewRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type sessionFixture struct {
	session *VoiceInterviewSession
	capture *PushCaptureSource
	stream  *fakeStream
	repo    *fakeInterviewRepo
	judge   *fakeJudge
}

func newSessionFixture(cfg config.InterviewConfig) *sessionFixture {
	capture := NewPushCaptureSource()
	stream := &fakeStream{}
	repo := &fakeInterviewRepo{}
	judge := &fakeJudge{
		analysis: models.AnswerAnalysis{Relevance: 80, Clarity: 80, TechnicalDepth: 80, Communication: 80, Feedback: "ok"},
	}

	application := &models.Application{ID: uuid.New(), ExtractedData: models.NewCandidateProfile()}
	job := &models.Job{ID: uuid.New(), Title: "Backend Engineer"}

	session := NewVoiceInterviewSession(
		application, job,
		judge, fakeSynth{}, instantSink{}, capture, &fakeDevices{stream: stream}, repo, cfg,
	)

	return &sessionFixture{
		session: session,
		capture: capture,
		stream:  stream,
		repo:    repo,
		judge:   judge,
	}
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (f *sessionFixture) pushEvent(t *testing.T, ev TranscriptEvent) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !f.capture.Push(ev) {
		if time.Now().After(deadline) {
			t.Fatal("timed out pushing a transcript event")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (f *sessionFixture) pushFinalAnswer(t *testing.T, text string) {
	t.Helper()
	f.pushEvent(t, TranscriptEvent{Text: text, Final: true})
}

func TestInterviewCompletesWithAllAnswers(t *testing.T) {
	cfg := config.InterviewConfig{
		Duration:       10 * time.Second,
		QuestionCount:  3,
		AnswerCeiling:  3 * time.Second,
		SilenceTimeout: time.Second,
	}
	f := newSessionFixture(cfg)
	f.session.Start()

	for i := 0; i < cfg.QuestionCount; i++ {
		f.pushFinalAnswer(t, fmt.Sprintf("my answer %d", i+1))
		recorded := i + 1
		waitFor(t, 3*time.Second, "answer to be recorded", func() bool {
			return len(f.session.Answers()) == recorded
		})
	}

	select {
	case <-f.session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not complete")
	}

	if state := f.session.State(); state != StateCompleted {
		t.Errorf("expected state %s, got %s", StateCompleted, state)
	}

	answers := f.session.Answers()
	if len(answers) != cfg.QuestionCount {
		t.Fatalf("expected %d answer records, got %d", cfg.QuestionCount, len(answers))
	}
	for i, a := range answers {
		if a.Question != fmt.Sprintf("Question %d?", i+1) {
			t.Errorf("answer %d recorded out of order: %q", i, a.Question)
		}
	}

	if f.repo.saveCount() != 1 {
		t.Errorf("expected exactly 1 persistence write, got %d", f.repo.saveCount())
	}
	if f.repo.lastScore != 80 {
		t.Errorf("expected final score 80, got %d", f.repo.lastScore)
	}
	if !f.stream.stopped.Load() {
		t.Error("media stream was not released")
	}
}

func TestInterviewWallClockExpiryMidRecording(t *testing.T) {
	cfg := config.InterviewConfig{
		Duration:       250 * time.Millisecond,
		QuestionCount:  2,
		AnswerCeiling:  10 * time.Second,
		SilenceTimeout: 10 * time.Second,
	}
	f := newSessionFixture(cfg)
	f.session.Start()

	waitFor(t, 2*time.Second, "recording state", func() bool {
		return f.session.State() == StateRecording
	})

	select {
	case <-f.session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not terminate on wall clock expiry")
	}

	if state := f.session.State(); state != StateCancelled {
		t.Errorf("expected state %s, got %s", StateCancelled, state)
	}
	if len(f.session.Answers()) != 0 {
		t.Errorf("expected no answer records, got %d", len(f.session.Answers()))
	}
	if f.repo.saveCount() != 1 {
		t.Errorf("expected exactly 1 persistence write, got %d", f.repo.saveCount())
	}
	if f.repo.lastScore != 0 {
		t.Errorf("expected final score 0 with no answers, got %d", f.repo.lastScore)
	}
	if !f.stream.stopped.Load() {
		t.Error("media stream was not released on forced termination")
	}
}

func TestInterviewEndRequestIsIdempotent(t *testing.T) {
	cfg := config.InterviewConfig{
		Duration:       10 * time.Second,
		QuestionCount:  3,
		AnswerCeiling:  5 * time.Second,
		SilenceTimeout: time.Second,
	}
	f := newSessionFixture(cfg)
	f.session.Start()

	f.pushFinalAnswer(t, "the only answer given")
	waitFor(t, 3*time.Second, "first answer to be recorded", func() bool {
		return len(f.session.Answers()) == 1
	})

	f.session.End()
	stateAfterFirst := f.session.State()
	if !stateAfterFirst.Terminal() {
		t.Fatalf("expected a terminal state after End, got %s", stateAfterFirst)
	}

	f.session.End()
	if state := f.session.State(); state != stateAfterFirst {
		t.Errorf("second End changed state from %s to %s", stateAfterFirst, state)
	}

	if f.repo.saveCount() != 1 {
		t.Errorf("expected exactly 1 persistence write after double End, got %d", f.repo.saveCount())
	}
	if f.repo.lastScore != 80 {
		t.Errorf("expected the partial score 80 from one answer, got %d", f.repo.lastScore)
	}
	if len(f.repo.lastData.Answers) != 1 {
		t.Errorf("expected 1 persisted answer, got %d", len(f.repo.lastData.Answers))
	}
}

func TestInterviewSilenceTimeoutCapturesPartialSpeech(t *testing.T) {
	cfg := config.InterviewConfig{
		Duration:       10 * time.Second,
		QuestionCount:  1,
		AnswerCeiling:  10 * time.Second,
		SilenceTimeout: 150 * time.Millisecond,
	}
	f := newSessionFixture(cfg)
	f.session.Start()

	// A partial with no final: the silence stop must end the turn and
	// score what was captured instead of skipping the question.
	f.pushEvent(t, TranscriptEvent{Text: "I would shard the database", Final: false})

	select {
	case <-f.session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not complete after the silence timeout")
	}

	if state := f.session.State(); state != StateCompleted {
		t.Errorf("expected state %s, got %s", StateCompleted, state)
	}

	answers := f.session.Answers()
	if len(answers) != 1 {
		t.Fatalf("expected 1 answer record from the partial, got %d", len(answers))
	}
	if answers[0].Answer != "I would shard the database" {
		t.Errorf("expected the partial transcript as the answer, got %q", answers[0].Answer)
	}
	if f.judge.scored.Load() != 1 {
		t.Errorf("expected the partial to be scored once, got %d calls", f.judge.scored.Load())
	}
	if f.repo.lastScore != 80 {
		t.Errorf("expected final score 80, got %d", f.repo.lastScore)
	}
}

func TestInterviewCeilingCapturesPartialSpeech(t *testing.T) {
	cfg := config.InterviewConfig{
		Duration:       10 * time.Second,
		QuestionCount:  1,
		AnswerCeiling:  300 * time.Millisecond,
		SilenceTimeout: 10 * time.Second,
	}
	f := newSessionFixture(cfg)
	f.session.Start()

	// The silence timeout never fires here, so the ceiling ends the turn
	// with the partial still pending. Unlike a silent turn, it must be
	// recorded and scored.
	f.pushEvent(t, TranscriptEvent{Text: "an answer cut off mid", Final: false})

	select {
	case <-f.session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not complete after the answer ceiling")
	}

	if state := f.session.State(); state != StateCompleted {
		t.Errorf("expected state %s, got %s", StateCompleted, state)
	}

	answers := f.session.Answers()
	if len(answers) != 1 {
		t.Fatalf("expected 1 answer record from the partial, got %d", len(answers))
	}
	if answers[0].Answer != "an answer cut off mid" {
		t.Errorf("expected the partial transcript as the answer, got %q", answers[0].Answer)
	}
	if f.judge.scored.Load() != 1 {
		t.Errorf("expected the partial to be scored once, got %d calls", f.judge.scored.Load())
	}
}

func TestInterviewSkipsUnansweredQuestions(t *testing.T) {
	cfg := config.InterviewConfig{
		Duration:       10 * time.Second,
		QuestionCount:  2,
		AnswerCeiling:  100 * time.Millisecond,
		SilenceTimeout: 10 * time.Second,
	}
	f := newSessionFixture(cfg)
	f.session.Start()

	select {
	case <-f.session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not complete")
	}

	if state := f.session.State(); state != StateCompleted {
		t.Errorf("expected state %s, got %s", StateCompleted, state)
	}
	if len(f.session.Answers()) != 0 {
		t.Errorf("skipped questions must not produce answer records, got %d", len(f.session.Answers()))
	}
	if f.judge.scored.Load() != 0 {
		t.Errorf("skipped questions must not be scored, got %d calls", f.judge.scored.Load())
	}
	if f.repo.lastScore != 0 {
		t.Errorf("expected score 0 with no answers, got %d", f.repo.lastScore)
	}
}

type denyingDevices struct{}

func (denyingDevices) Acquire(ctx context.Context) (MediaStream, error) {
	return nil, fmt.Errorf("permission denied")
}

func TestInterviewProceedsWhenMediaDenied(t *testing.T) {
	cfg := config.InterviewConfig{
		Duration:       10 * time.Second,
		QuestionCount:  1,
		AnswerCeiling:  3 * time.Second,
		SilenceTimeout: time.Second,
	}

	capture := NewPushCaptureSource()
	repo := &fakeInterviewRepo{}
	judge := &fakeJudge{
		analysis: models.AnswerAnalysis{Relevance: 90, Clarity: 90, TechnicalDepth: 90, Communication: 90, Feedback: "ok"},
	}

	application := &models.Application{ID: uuid.New(), ExtractedData: models.NewCandidateProfile()}
	job := &models.Job{ID: uuid.New(), Title: "Backend Engineer"}

	session := NewVoiceInterviewSession(
		application, job,
		judge, fakeSynth{}, instantSink{}, capture, denyingDevices{}, repo, cfg,
	)
	session.Start()

	ev := TranscriptEvent{Text: "still able to answer", Final: true}
	deadline := time.Now().Add(3 * time.Second)
	for !capture.Push(ev) {
		if time.Now().After(deadline) {
			t.Fatal("timed out pushing a transcript event")
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not complete after media denial")
	}

	if state := session.State(); state != StateCompleted {
		t.Errorf("expected state %s, got %s", StateCompleted, state)
	}
	if len(session.Answers()) != 1 {
		t.Errorf("expected 1 answer record, got %d", len(session.Answers()))
	}
}

func TestFinalInterviewScore(t *testing.T) {
	if got := FinalInterviewScore(nil); got != 0 {
		t.Errorf("expected 0 for no answers, got %d", got)
	}

	answers := []models.AnswerRecord{
		{Analysis: models.AnswerAnalysis{Relevance: 80, Clarity: 90, TechnicalDepth: 70, Communication: 100}},
		{Analysis: models.AnswerAnalysis{Relevance: 60, Clarity: 70, TechnicalDepth: 50, Communication: 80}},
	}

	// Per-metric averages: 70, 80, 60, 90. Their mean: 75.
	if got := FinalInterviewScore(answers); got != 75 {
		t.Errorf("expected 75, got %d", got)
	}
}

func TestSessionStateTerminal(t *testing.T) {
	for _, state := range []SessionState{StateIdle, StateAwaitingMedia, StateReady, StateSpeaking, StateRecording, StateAnalyzing} {
		if state.Terminal() {
			t.Errorf("%s should not be terminal", state)
		}
	}
	for _, state := range []SessionState{StateCompleted, StateCancelled} {
		if !state.Terminal() {
			t.Errorf("%s should be terminal", state)
		}
	}
}
