package generation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"camvid-backend/internal/fal"
)

// State is one step of a generation attempt's lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// IsTerminal reports whether the attempt is finished.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// JobAPI is the remote generation job surface the orchestrator drives.
// *fal.Client implements it.
type JobAPI interface {
	Upload(ctx context.Context, data []byte, contentType, fileName string) (string, error)
	Submit(ctx context.Context, req fal.GenerateRequest, webhookURL string) (string, error)
	FetchStatus(ctx context.Context, requestID string) (*fal.StatusSnapshot, error)
}

// Hooks receive transition notifications. All fields are optional.
type Hooks struct {
	OnTransition func(state State, statusLabel string)
	OnSuccess    func(videoURL, imageURL, prompt string)
	OnFailure    func(reason string)
}

// Options tune one generation attempt.
type Options struct {
	Duration    string
	AspectRatio string
	CFGScale    float64
	WebhookURL  string
}

// Orchestrator owns the lifecycle of a single generation attempt:
// upload the captured image, submit the job, then poll it to a terminal
// state one Tick at a time. The caller schedules ticks; the orchestrator
// never sleeps or re-schedules itself.
type Orchestrator struct {
	jobs  JobAPI
	hooks Hooks
	opts  Options

	mu            sync.Mutex
	state         State
	statusLabel   string
	prompt        string
	imageURL      string
	requestID     string
	videoURL      string
	failureReason string
}

// Snapshot is an immutable view of the attempt.
type Snapshot struct {
	State         State
	StatusLabel   string
	Prompt        string
	ImageURL      string
	RequestID     string
	VideoURL      string
	FailureReason string
}

func NewOrchestrator(jobs JobAPI, opts Options, hooks Hooks) *Orchestrator {
	return &Orchestrator{
		jobs:  jobs,
		hooks: hooks,
		opts:  opts,
		state: StateIdle,
	}
}

// Start runs the attempt up to the polling phase: upload the image, submit
// the job, enter Polling. Missing image or blank prompt fails the attempt
// immediately without any network call.
func (o *Orchestrator) Start(ctx context.Context, image []byte, contentType, prompt string) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return fmt.Errorf("generation attempt already started")
	}

	if len(image) == 0 || strings.TrimSpace(prompt) == "" {
		reason := "an image and a non-empty prompt are required"
		o.failLocked(reason)
		o.mu.Unlock()
		return fmt.Errorf("%s", reason)
	}

	o.prompt = prompt
	o.setStateLocked(StateUploading, "uploading")
	o.mu.Unlock()

	imageURL, err := o.jobs.Upload(ctx, image, contentType, "captured-image.jpg")
	if err != nil {
		o.fail(err.Error())
		return err
	}

	o.mu.Lock()
	o.imageURL = imageURL
	o.setStateLocked(StateSubmitting, "submitting")
	o.mu.Unlock()

	requestID, err := o.jobs.Submit(ctx, fal.GenerateRequest{
		Prompt:      prompt,
		ImageURL:    imageURL,
		Duration:    o.opts.Duration,
		AspectRatio: o.opts.AspectRatio,
		CFGScale:    o.opts.CFGScale,
	}, o.opts.WebhookURL)
	if err != nil {
		o.fail(err.Error())
		return err
	}

	o.mu.Lock()
	o.requestID = requestID
	o.setStateLocked(StatePolling, "initializing")
	o.mu.Unlock()

	return nil
}

// Tick performs one poll of the remote job and returns true once the
// attempt has reached a terminal state. A non-terminal status only
// re-emits the observed status label; repeating a tick for the same
// pending job changes nothing else.
func (o *Orchestrator) Tick(ctx context.Context) bool {
	o.mu.Lock()
	if o.state.IsTerminal() {
		o.mu.Unlock()
		return true
	}
	if o.state != StatePolling {
		o.mu.Unlock()
		return false
	}
	requestID := o.requestID
	o.mu.Unlock()

	snapshot, err := o.jobs.FetchStatus(ctx, requestID)
	if err != nil {
		o.fail(err.Error())
		return true
	}

	switch snapshot.Status {
	case fal.StatusCompleted:
		o.mu.Lock()
		o.videoURL = snapshot.VideoURL
		o.setStateLocked(StateCompleted, string(snapshot.Status))
		videoURL, imageURL, prompt := o.videoURL, o.imageURL, o.prompt
		o.mu.Unlock()
		if o.hooks.OnSuccess != nil {
			o.hooks.OnSuccess(videoURL, imageURL, prompt)
		}
		return true
	case fal.StatusFailed, fal.StatusCancelled:
		reason := snapshot.Error
		if reason == "" {
			reason = "video generation " + strings.ToLower(string(snapshot.Status))
		}
		o.fail(reason)
		return true
	default:
		o.mu.Lock()
		o.setStateLocked(StatePolling, string(snapshot.Status))
		o.mu.Unlock()
		return false
	}
}

// Abort fails a still-running attempt with the given reason. Used by the
// scheduler for poll bounds and caller-driven cancellation; the remote job
// keeps running on the provider's side.
func (o *Orchestrator) Abort(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.IsTerminal() {
		return
	}
	o.failLocked(reason)
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		State:         o.state,
		StatusLabel:   o.statusLabel,
		Prompt:        o.prompt,
		ImageURL:      o.imageURL,
		RequestID:     o.requestID,
		VideoURL:      o.videoURL,
		FailureReason: o.failureReason,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setStateLocked(state State, statusLabel string) {
	o.state = state
	o.statusLabel = statusLabel
	if o.hooks.OnTransition != nil {
		o.hooks.OnTransition(state, statusLabel)
	}
}

func (o *Orchestrator) fail(reason string) {
	o.mu.Lock()
	o.failLocked(reason)
	o.mu.Unlock()
}

func (o *Orchestrator) failLocked(reason string) {
	o.failureReason = reason
	o.setStateLocked(StateFailed, "failed")
	if o.hooks.OnFailure != nil {
		o.hooks.OnFailure(reason)
	}
}
