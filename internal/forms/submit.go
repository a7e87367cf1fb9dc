package forms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/services"
)

// ErrSubmitInProgress is returned when a second submit starts before the first ends.
var ErrSubmitInProgress = errors.New("submit already in progress")

// State is a step of the submit lifecycle.
type State int

const (
	Idle State = iota
	Submitting
	Success
	ValidationError
	GenericError
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case ValidationError:
		return "validationError"
	case GenericError:
		return "genericError"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the outcome of [Submitter.Submit].
//
// Exactly one of Data (Success), Validation (ValidationError) or Err (GenericError)
// describes the outcome.
type Result struct {
	State      State
	Target     hal.TemplateTarget
	Status     int
	Data       any
	Validation *services.FormValidationError
	Err        error
}

// OK reports a successful submit.
func (r Result) OK() bool {
	return r.State == Success
}

// Cause returns the failure as an error, or nil on success.
func (r Result) Cause() error {
	switch r.State {
	case ValidationError:
		return r.Validation
	case GenericError:
		return r.Err
	}
	return nil
}

// Doer sends a request without treating error statuses as failures.
type Doer interface {
	Do(ctx context.Context, href string, opts services.RequestOptions) (*services.APIResponse, error)
}

// SuccessFunc runs after a successful submit, e.g. to refetch or navigate back.
type SuccessFunc func(Result) error

// Submitter sends forms and tracks the state of the last submit.
type Submitter struct {
	client Doer
	logger *log.Logger

	mu    sync.Mutex
	state State
	last  Result
}

// NewSubmitter creates a submitter that writes through client.
func NewSubmitter(client Doer, logger *log.Logger) *Submitter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Submitter{client: client, logger: logger}
}

// State returns the current state.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Last returns the result of the most recent submit.
func (s *Submitter) Last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Reset returns to Idle.
func (s *Submitter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Submitting {
		s.state = Idle
		s.last = Result{}
	}
}

// Request is a submission captured from a [Form]. Sending it never touches the
// form, so a frontend may edit or discard the form while the request is in flight.
type Request struct {
	Template hal.Template
	Target   hal.TemplateTarget
	Values   map[string]any
	// Invalid holds client-side errors; a request with any is never sent.
	Invalid map[string]string
}

// NewRequest validates form and snapshots its values. It runs on the goroutine
// that owns the form.
func NewRequest(form *Form, currentURL string) Request {
	return Request{
		Template: form.Template,
		Target:   hal.TargetFor(form.Template, currentURL),
		Values:   form.Values(),
		Invalid:  form.Validate(),
	}
}

// ApplyTo merges server-side field errors of r onto form. Call it from the
// goroutine that owns the form.
func (r Result) ApplyTo(form *Form) {
	if r.State == ValidationError && r.Status != 0 && r.Validation != nil {
		form.SetServerErrors(r.Validation.ValidationErrors)
	}
}

// Submit validates form, sends its values to the template target (currentURL
// when the template has none) and reconciles the answer onto the form.
//
// onSuccess may be nil. Its error is logged and does not change the result.
func (s *Submitter) Submit(ctx context.Context, form *Form, currentURL string, onSuccess SuccessFunc) Result {
	result := s.Send(ctx, NewRequest(form, currentURL), onSuccess)
	result.ApplyTo(form)
	return result
}

// Send submits a captured request. The result is not applied to any form; see
// [Result.ApplyTo].
func (s *Submitter) Send(ctx context.Context, req Request, onSuccess SuccessFunc) Result {
	s.mu.Lock()
	if s.state == Submitting {
		s.mu.Unlock()
		return Result{State: GenericError, Target: req.Target, Err: ErrSubmitInProgress}
	}
	s.state = Submitting
	s.mu.Unlock()

	result := s.send(ctx, req)

	s.mu.Lock()
	s.state = result.State
	s.last = result
	s.mu.Unlock()

	if result.OK() && onSuccess != nil {
		if err := onSuccess(result); err != nil {
			s.logger.Error("submit callback failed", "target", result.Target.Target, "error", err)
		}
	}
	return result
}

func (s *Submitter) send(ctx context.Context, req Request) Result {
	target := req.Target

	if len(req.Invalid) > 0 {
		s.logger.Debug("submit blocked", "template", req.Template.Key, "fields", len(req.Invalid))
		return Result{
			State:  ValidationError,
			Target: target,
			Validation: &services.FormValidationError{
				Message:          services.ValidationMessage,
				ValidationErrors: req.Invalid,
				FormData:         req.Values,
			},
		}
	}

	href, err := hal.ToHref(target)
	if err != nil {
		return Result{State: GenericError, Target: target, Err: err}
	}

	s.logger.Info("submitting form", "method", target.Method, "target", href)
	resp, err := s.client.Do(ctx, href, services.RequestOptions{Method: target.Method, Body: req.Values})
	if err != nil {
		return Result{State: GenericError, Target: target, Err: err}
	}

	if resp.OK() {
		return Result{State: Success, Target: target, Status: resp.StatusCode, Data: resp.JSONData}
	}

	if resp.StatusCode == http.StatusBadRequest && resp.MediaType() == hal.MediaTypeProblem {
		fields, err := services.ParseValidationErrors(resp.Body)
		if err != nil {
			s.logger.Warn("unreadable problem document", "target", href, "error", err)
			fields = map[string]string{}
		}
		return Result{
			State:  ValidationError,
			Target: target,
			Status: resp.StatusCode,
			Validation: &services.FormValidationError{
				Message:          services.ValidationMessage,
				ValidationErrors: fields,
				FormData:         req.Values,
			},
		}
	}

	return Result{
		State:  GenericError,
		Target: target,
		Status: resp.StatusCode,
		Err:    &services.TransportError{Status: resp.StatusCode, StatusText: resp.StatusText(), Body: string(resp.Body)},
	}
}
