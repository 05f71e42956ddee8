package video

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"maxprompt-server/modules/common/apierr"
	"maxprompt-server/modules/common/credstore"
	"maxprompt-server/modules/common/media"
)

// ErrJobInFlight means the user already has a job that has not reached a
// terminal state.
var ErrJobInFlight = errors.New("a video job is already in flight for this user")

// Notifier receives the job after every state change. Wired to the
// progress hub in main; nil disables notifications.
type Notifier func(job *Job)

// Store is the persistence surface the service and worker need. Backed
// by the Redis JobStore in production.
type Store interface {
	Save(ctx context.Context, job *Job) error
	Get(ctx context.Context, jobID string) (*Job, error)
	Enqueue(ctx context.Context, jobID string) error
	Dequeue(ctx context.Context) (string, error)
	AcquireUser(ctx context.Context, userID, jobID string) (bool, error)
	ReleaseUser(ctx context.Context, userID string) error
	MarkDismissed(ctx context.Context, jobID string) error
	Dismissed(ctx context.Context, jobID string) bool
}

type Service struct {
	store     Store
	upstream  Upstream
	poller    *Poller
	creds     *credstore.Store
	notify    Notifier
	onDismiss func(jobID string)
}

func NewService(store Store, upstream Upstream, poller *Poller, creds *credstore.Store) *Service {
	return &Service{
		store:    store,
		upstream: upstream,
		poller:   poller,
		creds:    creds,
	}
}

// SetNotifier registers the job-update fanout.
func (s *Service) SetNotifier(notify Notifier) {
	s.notify = notify
}

// Submit validates the request, claims the user's in-flight slot, and
// enqueues the job for the worker.
func (s *Service) Submit(ctx context.Context, req *Request) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	acquired, err := s.store.AcquireUser(ctx, req.UserID, jobID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrJobInFlight
	}

	now := time.Now().Format(time.RFC3339)
	job := &Job{
		JobID:       jobID,
		UserID:      req.UserID,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
		SourceImage: req.SourceImage,
		Status:      StatusSubmitted,
		Phase:       PhaseSubmitting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Save(ctx, job); err != nil {
		s.store.ReleaseUser(ctx, req.UserID)
		return nil, err
	}
	if err := s.store.Enqueue(ctx, jobID); err != nil {
		s.store.ReleaseUser(ctx, req.UserID)
		return nil, err
	}

	log.Printf("🎬 [Video] Job %s submitted by user %s", jobID, req.UserID)
	return job, nil
}

// Get loads a job; (nil, nil) when unknown.
func (s *Service) Get(ctx context.Context, jobID string) (*Job, error) {
	return s.store.Get(ctx, jobID)
}

// Dismiss detaches the caller from a running job. The job itself keeps
// polling to completion; only the delivery of its outcome stops.
func (s *Service) Dismiss(ctx context.Context, jobID string) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return apierr.New(apierr.KindValidation, "unknown job: %s", jobID)
	}
	log.Printf("👋 [Video] Job %s dismissed; generation continues in the background", jobID)
	if err := s.store.MarkDismissed(ctx, jobID); err != nil {
		return err
	}
	if s.onDismiss != nil {
		s.onDismiss(jobID)
	}
	return nil
}

// OnDismiss registers the listener-detach hook, wired to the progress hub.
func (s *Service) OnDismiss(fn func(jobID string)) {
	s.onDismiss = fn
}

// Dismissed reports whether the caller detached from the job.
func (s *Service) Dismissed(jobID string) bool {
	return s.store.Dismissed(context.Background(), jobID)
}

// Process runs one job end to end: submit upstream, poll to completion,
// redeem the result. Called from the worker.
func (s *Service) Process(ctx context.Context, jobID string) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		log.Printf("⚠️  [Video] Job %s not found, skipping", jobID)
		return nil
	}
	if job.Status.Terminal() {
		log.Printf("⚠️  [Video] Job %s already %s, skipping", jobID, job.Status)
		return nil
	}
	defer s.store.ReleaseUser(ctx, job.UserID)

	apiKey, err := s.creds.Get(ctx)
	if err != nil {
		return s.fail(ctx, job, err)
	}
	if apiKey == "" {
		return s.fail(ctx, job, apierr.New(apierr.KindAuth, "no API key configured"))
	}
	// key re-reads the credential so one saved mid-job applies to the
	// next poll and the download
	key := func() string {
		if k, err := s.creds.Get(ctx); err == nil && k != "" {
			return k
		}
		return apiKey
	}

	req := &Request{
		UserID:      job.UserID,
		Prompt:      job.Prompt,
		AspectRatio: job.AspectRatio,
		Resolution:  job.Resolution,
		SourceImage: job.SourceImage,
	}
	op, err := s.upstream.Submit(ctx, apiKey, req)
	if err != nil {
		return s.fail(ctx, job, apierr.Classify(err))
	}

	job.Status = StatusPolling
	job.Phase = PhaseWaiting
	job.OperationName = op.Name()
	s.save(ctx, job)
	log.Printf("🎬 [Video] Job %s polling operation %s", job.JobID, job.OperationName)

	op, err = s.poller.Wait(ctx, key, op, func(pollCount int) {
		job.PollCount = pollCount
		s.save(ctx, job)
	})
	if err != nil {
		return s.fail(ctx, job, err)
	}

	job.Phase = PhaseDownloading
	s.save(ctx, job)

	video, err := s.redeem(ctx, key(), op)
	if err != nil {
		return s.fail(ctx, job, err)
	}

	job.Status = StatusSucceeded
	job.Phase = PhaseDone
	job.Video = video
	s.save(ctx, job)
	log.Printf("✅ [Video] Job %s succeeded after %d polls (%d bytes)",
		job.JobID, job.PollCount, len(video.Data))
	return nil
}

// redeem turns a finished operation into video bytes, preferring the
// inline payload and falling back to the result URI.
func (s *Service) redeem(ctx context.Context, apiKey string, op Operation) (*media.Encoded, error) {
	if raw := op.ResultBytes(); len(raw) > 0 {
		return media.EncodeBytes(raw, "video/mp4"), nil
	}

	uri := op.ResultURI()
	if uri == "" {
		return nil, apierr.New(apierr.KindUpstream, "operation finished without a video")
	}

	raw, mimeType, err := s.upstream.Download(ctx, apiKey, uri)
	if err != nil {
		return nil, apierr.Classify(err)
	}
	return media.EncodeBytes(raw, mimeType), nil
}

func (s *Service) fail(ctx context.Context, job *Job, err error) error {
	classified := apierr.Classify(err)
	job.Status = StatusFailed
	job.Phase = PhaseError
	job.ErrorKind = string(classified.Kind)
	job.ErrorMessage = classified.Message
	s.save(ctx, job)
	log.Printf("❌ [Video] Job %s failed (%s): %s", job.JobID, job.ErrorKind, job.ErrorMessage)
	return classified
}

func (s *Service) save(ctx context.Context, job *Job) {
	job.UpdatedAt = time.Now().Format(time.RFC3339)
	if err := s.store.Save(ctx, job); err != nil {
		log.Printf("❌ [Video] Failed to save job %s: %v", job.JobID, err)
	}
	if s.notify != nil {
		s.notify(job)
	}
}
