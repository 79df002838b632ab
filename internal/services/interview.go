package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"farrelnajib/ai-hiring/internal/config"
	"farrelnajib/ai-hiring/internal/models"
	"farrelnajib/ai-hiring/internal/repositories"
)

// SessionState is one node of the interview state machine.
type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateAwaitingMedia SessionState = "awaiting_media"
	StateReady         SessionState = "ready"
	StateSpeaking      SessionState = "speaking"
	StateRecording     SessionState = "recording"
	StateAnalyzing     SessionState = "analyzing"
	StateCompleted     SessionState = "completed"
	StateCancelled     SessionState = "cancelled"
)

// Terminal reports whether no transition leaves this state.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// VoiceInterviewSession runs one candidate interview as a single event loop.
// All transitions happen on the loop goroutine; external inputs (start,
// end-request, transcript events, playback completion) arrive through
// channels and the speech ports. The wall clock is the sole source of forced
// termination and outranks any in-flight speaking, recording or analyzing.
type VoiceInterviewSession struct {
	application *models.Application
	job         *models.Job

	judge   JudgeService
	synth   Synthesizer
	sink    AudioSink
	capture CaptureSource
	devices MediaDevices
	appRepo repositories.ApplicationRepository
	cfg     config.InterviewConfig

	// generation advances on termination; async work started under an older
	// generation has its result discarded instead of applied.
	generation atomic.Uint64

	mu           sync.Mutex
	state        SessionState
	questions    []string
	questionIdx  int
	answers      []models.AnswerRecord
	lastAnalysis *models.AnswerAnalysis
	finalScore   *int
	mediaGranted bool
	stream       MediaStream
	startedAt    time.Time
	deadline     time.Time
	persistErr   error

	cancelRun    context.CancelFunc
	startCh      chan struct{}
	endCh        chan struct{}
	doneCh       chan struct{}
	endOnce      sync.Once
	teardownOnce sync.Once
}

// NewVoiceInterviewSession constructs a session and immediately begins media
// acquisition and question generation on its own goroutine. The interview
// itself does not begin until Start is called.
func NewVoiceInterviewSession(
	application *models.Application,
	job *models.Job,
	judge JudgeService,
	synth Synthesizer,
	sink AudioSink,
	capture CaptureSource,
	devices MediaDevices,
	appRepo repositories.ApplicationRepository,
	cfg config.InterviewConfig,
) *VoiceInterviewSession {
	ctx, cancel := context.WithCancel(context.Background())

	s := &VoiceInterviewSession{
		application: application,
		job:         job,
		judge:       judge,
		synth:       synth,
		sink:        sink,
		capture:     capture,
		devices:     devices,
		appRepo:     appRepo,
		cfg:         cfg,
		state:       StateIdle,
		cancelRun:   cancel,
		startCh:     make(chan struct{}, 1),
		endCh:       make(chan struct{}),
		doneCh:      make(chan struct{}),
	}

	go s.run(ctx)
	return s
}

// Start moves a prepared session into the question loop. Duplicate calls are
// no-ops.
func (s *VoiceInterviewSession) Start() {
	select {
	case s.startCh <- struct{}{}:
	default:
	}
}

// End terminates the session from any state: playback and capture stop, media
// is released, and the final score is computed from whatever answers exist.
// End is idempotent and returns once the session is terminal.
func (s *VoiceInterviewSession) End() {
	s.endOnce.Do(func() {
		s.generation.Add(1)
		close(s.endCh)
		s.cancelRun()
	})
	<-s.doneCh
}

// Done is closed once the session has reached a terminal state.
func (s *VoiceInterviewSession) Done() <-chan struct{} {
	return s.doneCh
}

func (s *VoiceInterviewSession) run(ctx context.Context) {
	defer close(s.doneCh)

	s.setState(StateAwaitingMedia)

	stream, err := s.devices.Acquire(ctx)
	s.mu.Lock()
	if err != nil {
		log.Printf("⚠️  Media access denied, continuing audio-degraded: %v\n", err)
		s.mediaGranted = false
	} else {
		s.stream = stream
		s.mediaGranted = true
	}
	s.mu.Unlock()

	questions := s.judge.GenerateQuestions(ctx, s.application.ExtractedData, s.job, s.cfg.QuestionCount)
	s.mu.Lock()
	s.questions = questions
	s.mu.Unlock()

	s.setState(StateReady)

	select {
	case <-s.startCh:
	case <-s.endCh:
		s.finish(StateCancelled)
		return
	case <-ctx.Done():
		s.finish(StateCancelled)
		return
	}

	now := time.Now()
	s.mu.Lock()
	s.startedAt = now
	s.deadline = now.Add(s.cfg.Duration)
	s.mu.Unlock()

	wallTimer := time.NewTimer(s.cfg.Duration)
	defer wallTimer.Stop()

	log.Printf("🎤 Interview started for application %s (%d questions)\n", s.application.ID, len(questions))

	for i, question := range questions {
		s.mu.Lock()
		s.questionIdx = i
		s.mu.Unlock()

		if !s.speakQuestion(ctx, question, wallTimer) {
			s.finish(StateCancelled)
			return
		}

		answer, ok := s.recordAnswer(ctx, wallTimer)
		if !ok {
			s.finish(StateCancelled)
			return
		}

		// No speech captured: the question counts as skipped, not scored
		if strings.TrimSpace(answer) == "" {
			log.Printf("⏭️  No answer captured for question %d, skipping analysis\n", i+1)
			continue
		}

		analysis, ok := s.analyzeAnswer(ctx, question, answer, wallTimer)
		if !ok {
			s.finish(StateCancelled)
			return
		}

		record := models.AnswerRecord{
			Question:  question,
			Answer:    answer,
			Analysis:  analysis,
			Timestamp: time.Now(),
		}

		s.mu.Lock()
		s.answers = append(s.answers, record)
		s.lastAnalysis = &record.Analysis
		s.mu.Unlock()
	}

	s.finish(StateCompleted)
}

// speakQuestion synthesizes and plays one question. Recording never starts
// while playback is in flight. Synthesis failure degrades to a silent
// question rather than stalling the interview.
func (s *VoiceInterviewSession) speakQuestion(ctx context.Context, question string, wallTimer *time.Timer) bool {
	s.setState(StateSpeaking)

	return s.runStep(wallTimer, func() {
		audio, err := s.synth.Synthesize(ctx, question)
		if err != nil {
			log.Printf("⚠️  Speech synthesis failed, continuing without audio: %v\n", err)
			return
		}

		if err := s.sink.Play(ctx, audio); err != nil {
			log.Printf("⚠️  Audio playback interrupted: %v\n", err)
		}
	})
}

// recordAnswer captures speech until a finalized utterance arrives, silence
// follows captured speech, or the per-question ceiling elapses. Returns
// ok=false when the session must terminate instead.
func (s *VoiceInterviewSession) recordAnswer(ctx context.Context, wallTimer *time.Timer) (string, bool) {
	s.setState(StateRecording)

	events, err := s.capture.Start(ctx)
	if err != nil {
		log.Printf("⚠️  Speech capture unavailable: %v\n", err)
		return "", true
	}
	defer s.capture.Stop()

	ceiling := time.NewTimer(s.cfg.AnswerCeiling)
	defer ceiling.Stop()

	var finals []string
	var partial string

	silence := time.NewTimer(s.cfg.SilenceTimeout)
	silence.Stop()
	defer silence.Stop()
	var silenceC <-chan time.Time

	for {
		select {
		case ev, open := <-events:
			if !open {
				return joinTranscript(finals, partial), true
			}

			if ev.Final {
				if text := strings.TrimSpace(ev.Text); text != "" {
					finals = append(finals, text)
				}
				return joinTranscript(finals, ""), true
			}

			partial = ev.Text
			if strings.TrimSpace(partial) != "" {
				if !silence.Stop() {
					select {
					case <-silence.C:
					default:
					}
				}
				silence.Reset(s.cfg.SilenceTimeout)
				silenceC = silence.C
			}

		case <-silenceC:
			return joinTranscript(finals, partial), true

		case <-ceiling.C:
			return joinTranscript(finals, partial), true

		case <-wallTimer.C:
			return "", false

		case <-s.endCh:
			return "", false

		case <-ctx.Done():
			return "", false
		}
	}
}

func joinTranscript(finals []string, partial string) string {
	parts := make([]string, 0, len(finals)+1)
	parts = append(parts, finals...)
	if p := strings.TrimSpace(partial); p != "" {
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// analyzeAnswer scores one answer. The judge cannot fail, so the only way
// out of Analyzing without an analysis is forced termination.
func (s *VoiceInterviewSession) analyzeAnswer(ctx context.Context, question, answer string, wallTimer *time.Timer) (models.AnswerAnalysis, bool) {
	s.setState(StateAnalyzing)

	var analysis models.AnswerAnalysis
	ok := s.runStep(wallTimer, func() {
		analysis = s.judge.ScoreAnswer(ctx, question, answer, s.application.ExtractedData, s.job)
	})

	return analysis, ok
}

// runStep runs fn off the loop goroutine and waits for it, the wall clock, or
// an end-request, whichever settles first. An abandoned fn keeps running but
// its result is discarded: the generation captured here no longer matches
// once termination has begun.
func (s *VoiceInterviewSession) runStep(wallTimer *time.Timer, fn func()) bool {
	gen := s.generation.Load()

	done := make(chan struct{}, 1)
	go func() {
		fn()
		done <- struct{}{}
	}()

	select {
	case <-done:
		return gen == s.generation.Load()
	case <-wallTimer.C:
		return false
	case <-s.endCh:
		return false
	}
}

// finish performs the single terminal transition: stop capture and playback,
// release media, compute the final score from captured answers, and persist
// the transcript. Runs at most once regardless of how many exit paths race.
func (s *VoiceInterviewSession) finish(terminal SessionState) {
	s.teardownOnce.Do(func() {
		s.generation.Add(1)
		s.cancelRun()
		s.capture.Stop()

		s.mu.Lock()
		stream := s.stream
		s.stream = nil
		s.state = terminal
		startedAt := s.startedAt
		questions := s.questions
		answers := s.answers
		s.mu.Unlock()

		if stream != nil {
			stream.Stop()
		}

		score := FinalInterviewScore(answers)
		durationSeconds := 0
		if !startedAt.IsZero() {
			durationSeconds = int(time.Since(startedAt).Seconds())
		}

		s.mu.Lock()
		s.finalScore = &score
		s.mu.Unlock()

		log.Printf("🏁 Interview %s for application %s: %d answers, final score %d\n",
			terminal, s.application.ID, len(answers), score)

		if s.appRepo == nil {
			return
		}

		data := &models.InterviewData{
			Questions:       questions,
			Answers:         answers,
			CompletedAt:     time.Now(),
			DurationSeconds: durationSeconds,
		}

		// Best effort: a failed write never rolls back the in-memory result
		if err := s.appRepo.SaveInterviewResult(s.application.ID, score, data); err != nil {
			log.Printf("⚠️  Failed to persist interview result for %s: %v\n", s.application.ID, err)
			s.mu.Lock()
			s.persistErr = err
			s.mu.Unlock()
		}
	})
}

func (s *VoiceInterviewSession) setState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return
	}
	s.state = state
}

// State returns the current state machine node.
func (s *VoiceInterviewSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Answers returns a copy of the records captured so far.
func (s *VoiceInterviewSession) Answers() []models.AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make([]models.AnswerRecord, len(s.answers))
	copy(answers, s.answers)
	return answers
}

// Status snapshots the session for the status endpoint.
func (s *VoiceInterviewSession) Status() models.InterviewStatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.InterviewStatusResponse{
		State:                string(s.state),
		CurrentQuestionIndex: s.questionIdx,
		QuestionCount:        len(s.questions),
		RemainingSeconds:     s.remainingSecondsLocked(),
		IsSpeaking:           s.state == StateSpeaking,
		IsRecording:          s.state == StateRecording,
		IsAnalyzing:          s.state == StateAnalyzing,
		AnswersRecorded:      len(s.answers),
		LastAnalysis:         s.lastAnalysis,
		FinalScore:           s.finalScore,
	}

	if s.questionIdx < len(s.questions) && !s.state.Terminal() {
		status.CurrentQuestion = s.questions[s.questionIdx]
	}

	return status
}

func (s *VoiceInterviewSession) remainingSecondsLocked() int {
	if s.state.Terminal() {
		return 0
	}
	if s.deadline.IsZero() {
		return int(s.cfg.Duration.Seconds())
	}

	remaining := time.Until(s.deadline)
	if remaining < 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

// FinalInterviewScore averages the four metrics across all answers, then
// averages those four numbers. Each quality dimension weighs equally no
// matter how many answers were captured. Zero answers scores zero.
func FinalInterviewScore(answers []models.AnswerRecord) int {
	if len(answers) == 0 {
		return 0
	}

	var relevance, clarity, depth, communication float64
	for _, a := range answers {
		relevance += float64(a.Analysis.Relevance)
		clarity += float64(a.Analysis.Clarity)
		depth += float64(a.Analysis.TechnicalDepth)
		communication += float64(a.Analysis.Communication)
	}

	n := float64(len(answers))
	return int(math.Round((relevance/n + clarity/n + depth/n + communication/n) / 4))
}

// InterviewService owns the live sessions, one per application, and exposes
// the operations the transport layer drives them with.
type InterviewService interface {
	StartInterview(applicationID uuid.UUID, mediaGranted bool) (*models.InterviewStatusResponse, error)
	PushTranscript(applicationID uuid.UUID, event TranscriptEvent) error
	NextAudio(applicationID uuid.UUID) ([]byte, error)
	PlaybackDone(applicationID uuid.UUID) error
	EndInterview(applicationID uuid.UUID) (*models.InterviewStatusResponse, error)
	Status(applicationID uuid.UUID) (*models.InterviewStatusResponse, error)
}

type sessionHandle struct {
	session *VoiceInterviewSession
	capture *PushCaptureSource
	sink    *RemoteAudioSink
}

type interviewService struct {
	judge   JudgeService
	synth   Synthesizer
	appRepo repositories.ApplicationRepository
	jobRepo repositories.JobRepository
	cfg     config.InterviewConfig

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionHandle
}

func NewInterviewService(
	judge JudgeService,
	synth Synthesizer,
	appRepo repositories.ApplicationRepository,
	jobRepo repositories.JobRepository,
	cfg config.InterviewConfig,
) InterviewService {
	return &interviewService{
		judge:    judge,
		synth:    synth,
		appRepo:  appRepo,
		jobRepo:  jobRepo,
		cfg:      cfg,
		sessions: make(map[uuid.UUID]*sessionHandle),
	}
}

func (s *interviewService) StartInterview(applicationID uuid.UUID, mediaGranted bool) (*models.InterviewStatusResponse, error) {
	application, err := s.appRepo.FindByID(applicationID)
	if err != nil {
		return nil, err
	}

	if application.Status != models.StatusCompleted {
		return nil, fmt.Errorf("application evaluation is not completed yet")
	}
	if !application.InterviewEligible {
		return nil, fmt.Errorf("candidate is not eligible for an interview")
	}
	if application.InterviewStatus != models.InterviewNotStarted {
		return nil, fmt.Errorf("interview already completed")
	}

	job, err := s.jobRepo.FindByID(application.JobID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[applicationID]; ok && !existing.session.State().Terminal() {
		return nil, fmt.Errorf("interview already in progress")
	}

	capture := NewPushCaptureSource()
	sink := NewRemoteAudioSink()
	devices := StaticMediaDevices{Granted: mediaGranted}

	session := NewVoiceInterviewSession(application, job, s.judge, s.synth, sink, capture, devices, s.appRepo, s.cfg)
	session.Start()

	s.sessions[applicationID] = &sessionHandle{
		session: session,
		capture: capture,
		sink:    sink,
	}

	status := session.Status()
	return &status, nil
}

func (s *interviewService) handle(applicationID uuid.UUID) (*sessionHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.sessions[applicationID]
	if !ok {
		return nil, fmt.Errorf("no interview session for application %s", applicationID)
	}
	return handle, nil
}

func (s *interviewService) PushTranscript(applicationID uuid.UUID, event TranscriptEvent) error {
	handle, err := s.handle(applicationID)
	if err != nil {
		return err
	}

	handle.capture.Push(event)
	return nil
}

// NextAudio returns the question clip awaiting delivery, or nil when there is
// nothing to play right now.
func (s *interviewService) NextAudio(applicationID uuid.UUID) ([]byte, error) {
	handle, err := s.handle(applicationID)
	if err != nil {
		return nil, err
	}

	return handle.sink.TakeAudio(), nil
}

func (s *interviewService) PlaybackDone(applicationID uuid.UUID) error {
	handle, err := s.handle(applicationID)
	if err != nil {
		return err
	}

	handle.sink.PlaybackDone()
	return nil
}

func (s *interviewService) EndInterview(applicationID uuid.UUID) (*models.InterviewStatusResponse, error) {
	handle, err := s.handle(applicationID)
	if err != nil {
		return nil, err
	}

	handle.session.End()

	status := handle.session.Status()
	return &status, nil
}

func (s *interviewService) Status(applicationID uuid.UUID) (*models.InterviewStatusResponse, error) {
	handle, err := s.handle(applicationID)
	if err != nil {
		return nil, err
	}

	status := handle.session.Status()
	return &status, nil
}
