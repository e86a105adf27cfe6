// Package workflow orchestrates one generation round trip: validate the
// uploaded photo and style choice, submit the multipart request, decode the
// result and kick off a credit-balance refresh.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pawtrait/pawtrait-client/internal/api"
	"github.com/pawtrait/pawtrait-client/internal/entitlement"
	"github.com/pawtrait/pawtrait-client/internal/export"
	"github.com/pawtrait/pawtrait-client/internal/models"
	"github.com/pawtrait/pawtrait-client/internal/session"
)

// MaxUploadBytes is the inclusive upload limit: exactly 10MB is accepted.
const MaxUploadBytes = 10 << 20

const genericFailureMessage = "Failed to generate image. Please try again."

type State int

const (
	StateIdle State = iota
	StateValidatingInput
	StateSubmitting
	StateSucceeded
	StateFailed
)

type Mode int

const (
	ModeCatalogStyle Mode = iota
	ModeCustomScene
)

// ErrSubmissionInFlight rejects a second submit while one is outstanding.
// The duplicate is dropped, not queued.
var ErrSubmissionInFlight = errors.New("a generation is already in progress")

// ValidationError is a client-side input rejection, raised before any network
// call. Its message is shown to the user verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Input is the ephemeral request under construction. It survives a failed
// submit so the user can retry without re-uploading.
type Input struct {
	Filename     string
	Image        []byte
	Mode         Mode
	Style        string
	CustomPrompt string
}

// Result is the rendered artwork for the current screen.
type Result struct {
	ImageData   []byte
	Style       string
	CreatedAt   time.Time
	CreditsUsed int
}

// generationAPI is the slice of the API client the workflow needs.
type generationAPI interface {
	Generate(ctx context.Context, filename string, image []byte, style string) (*models.GenerationResponse, error)
}

// sessionStore is what the workflow reads from and refreshes on the session.
type sessionStore interface {
	Identity() (models.Identity, bool)
	Refresh(ctx context.Context) error
}

type Workflow struct {
	mu        sync.Mutex
	state     State
	input     Input
	result    *Result
	errMsg    string
	client    generationAPI
	session   sessionStore
	log       *slog.Logger
	refreshWG sync.WaitGroup
}

func New(client generationAPI, store sessionStore, log *slog.Logger) *Workflow {
	return &Workflow{
		state:   StateIdle,
		client:  client,
		session: store,
		log:     log,
	}
}

// SetImage stages the uploaded photo. Oversized or non-image files are
// rejected here, before anything else happens; a previous result and error
// are cleared either way.
func (w *Workflow) SetImage(filename string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.result = nil
	w.errMsg = ""

	if len(data) > MaxUploadBytes {
		w.input.Filename = ""
		w.input.Image = nil
		w.errMsg = "File size exceeds 10MB limit."
		return &ValidationError{Message: w.errMsg}
	}
	if len(data) > 0 {
		if mime := http.DetectContentType(data); mime != "image/png" && mime != "image/jpeg" {
			w.input.Filename = ""
			w.input.Image = nil
			w.errMsg = "Please upload a PNG or JPEG image."
			return &ValidationError{Message: w.errMsg}
		}
	}

	w.input.Filename = filename
	w.input.Image = data
	return nil
}

// UseStyle puts the workflow in catalog-style mode.
func (w *Workflow) UseStyle(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.input.Mode = ModeCatalogStyle
	w.input.Style = name
}

// UseCustomScene puts the workflow in custom-scene mode.
func (w *Workflow) UseCustomScene(prompt string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.input.Mode = ModeCustomScene
	w.input.CustomPrompt = prompt
}

// Submit runs validation and, if it passes, the remote generation call. On
// success the identity refresh reflecting the credit deduction is spawned in
// the background; its failure never hides the returned result.
func (w *Workflow) Submit(ctx context.Context) (*Result, error) {
	w.mu.Lock()
	if w.state == StateValidatingInput || w.state == StateSubmitting {
		w.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	w.state = StateValidatingInput
	w.result = nil
	w.errMsg = ""
	input := w.input
	w.mu.Unlock()

	style, err := w.validate(input)
	if err != nil {
		w.settle(StateIdle, nil, err.Error())
		return nil, err
	}

	w.setState(StateSubmitting)
	resp, err := w.client.Generate(ctx, input.Filename, input.Image, style)
	if err != nil {
		msg := genericFailureMessage
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		w.settle(StateFailed, nil, msg)
		return nil, errors.New(msg)
	}

	imageData, err := export.DecodeImage(resp.ResultBase64)
	if err != nil {
		w.log.Error("decode generation result", "err", err)
		w.settle(StateFailed, nil, genericFailureMessage)
		return nil, errors.New(genericFailureMessage)
	}

	result := &Result{
		ImageData:   imageData,
		Style:       resp.Style,
		CreatedAt:   resp.CreatedAt,
		CreditsUsed: resp.CreditsUsed,
	}
	w.settle(StateSucceeded, result, "")

	w.refreshWG.Add(1)
	go func() {
		defer w.refreshWG.Done()
		if err := w.session.Refresh(context.Background()); err != nil {
			w.log.Warn("credit refresh after generation failed", "err", err)
		}
	}()

	return result, nil
}

// validate applies every client-side rule and resolves the style-or-prompt
// string sent to the server. It performs no network calls.
func (w *Workflow) validate(input Input) (string, error) {
	if len(input.Image) == 0 {
		return "", &ValidationError{Message: "Please upload a photo."}
	}
	if len(input.Image) > MaxUploadBytes {
		return "", &ValidationError{Message: "File size exceeds 10MB limit."}
	}

	identity, ok := w.session.Identity()
	if !ok {
		return "", &ValidationError{Message: "Please log in to generate artwork."}
	}

	if input.Mode == ModeCustomScene {
		prompt := strings.TrimSpace(input.CustomPrompt)
		if prompt == "" {
			return "", &ValidationError{Message: "Please describe your custom scene."}
		}
		if !entitlement.CanUseCustomScene(identity) {
			return "", &ValidationError{Message: "Custom scenes are not available for your tier. Please upgrade to access them."}
		}
		return prompt, nil
	}

	if input.Style == "" {
		return "", &ValidationError{Message: "Please select a style."}
	}
	if !entitlement.IsStyleAllowed(identity, input.Style) {
		return "", &ValidationError{Message: "Style '" + input.Style + "' is not available for your tier. Please upgrade to access all styles."}
	}
	return input.Style, nil
}

// Reset clears file, result, error and prompt, returning to idle.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateIdle
	w.input = Input{}
	w.result = nil
	w.errMsg = ""
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Result returns the artwork from the last successful submit, nil otherwise.
func (w *Workflow) Result() *Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// ErrorMessage returns the user-displayable message from the last failure.
func (w *Workflow) ErrorMessage() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errMsg
}

func (w *Workflow) setState(state State) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
}

func (w *Workflow) settle(state State, result *Result, errMsg string) {
	w.mu.Lock()
	w.state = state
	w.result = result
	w.errMsg = errMsg
	w.mu.Unlock()
}

// waitRefresh blocks until any background identity refresh has finished.
func (w *Workflow) waitRefresh() {
	w.refreshWG.Wait()
}

var _ sessionStore = (*session.Store)(nil)
