package services

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/utils"
	"github.com/sirupsen/logrus"
)

type ActionStatus string

const (
	ActionIdle    ActionStatus = "idle"
	ActionSuccess ActionStatus = "success"
	ActionError   ActionStatus = "error"
)

// FormErrorKey holds errors that concern the whole request.
const FormErrorKey = "_form"

const (
	ActionConfirm = "confirm"
	ActionReject  = "reject"
)

// ActionState is the outcome of a reservation action as shown to the form.
type ActionState struct {
	Status ActionStatus        `json:"status"`
	Errors map[string][]string `json:"errors,omitempty"`
	Order  *models.Order       `json:"order,omitempty"`
	// Err is the classified failure behind an error state.
	Err error `json:"-"`
}

func IdleState() ActionState {
	return ActionState{Status: ActionIdle}
}

func errorState(errs map[string][]string, err error) ActionState {
	return ActionState{Status: ActionError, Errors: errs, Err: err}
}

// ReservationActions lists the actions a role is offered on a reserved
// order. This only shapes the UI; the HTTP layer enforces access.
func ReservationActions(role string) []string {
	if role == models.RoleKitchen {
		return []string{}
	}
	return []string{ActionConfirm, ActionReject}
}

// ActionsFor returns the actions offered for an order row.
func ActionsFor(role, status string) []string {
	if status != models.OrderStatusReserved {
		return []string{}
	}
	return ReservationActions(role)
}

// ActionTarget maps an action name to the order status it requests.
func ActionTarget(action string) (string, bool) {
	switch action {
	case ActionConfirm:
		return models.OrderStatusProcess, true
	case ActionReject:
		return models.OrderStatusCanceled, true
	}
	return "", false
}

type Transitioner interface {
	Transition(ctx context.Context, orderID, tableID uint, target string) (*models.Order, error)
}

// ReservationDispatcher turns a submitted reservation form into one
// lifecycle transition. It never touches local state: views catch up
// through the change feed.
type ReservationDispatcher struct {
	lifecycle Transitioner
	log       logrus.FieldLogger

	// OnSuccess runs after a committed transition.
	OnSuccess func(ctx context.Context, by models.Profile, order *models.Order)
}

func NewReservationDispatcher(lifecycle Transitioner, log logrus.FieldLogger) *ReservationDispatcher {
	return &ReservationDispatcher{lifecycle: lifecycle, log: utils.LoggerOrDefault(log)}
}

type reservationForm struct {
	orderID uint
	tableID uint
	target  string
}

func parseReservationForm(form url.Values) (reservationForm, map[string][]string) {
	var (
		out  reservationForm
		errs = map[string][]string{}
	)

	out.orderID = parseID(form.Get("id"), "id", "order", errs)
	out.tableID = parseID(form.Get("table_id"), "table_id", "table", errs)

	out.target = strings.TrimSpace(form.Get("status"))
	switch out.target {
	case models.OrderStatusProcess, models.OrderStatusCanceled:
	case "":
		errs["status"] = append(errs["status"], "status is required")
	default:
		errs["status"] = append(errs["status"], "status must be process or canceled")
	}

	if len(errs) == 0 {
		return out, nil
	}
	return out, errs
}

func parseID(raw, field, what string, errs map[string][]string) uint {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		errs[field] = append(errs[field], what+" is required")
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		errs[field] = append(errs[field], what+" must be a positive number")
		return 0
	}
	return uint(n)
}

// Dispatch validates the form and submits the transition.
func (d *ReservationDispatcher) Dispatch(ctx context.Context, by models.Profile, form url.Values) ActionState {
	in, fieldErrs := parseReservationForm(form)
	if fieldErrs != nil {
		return errorState(fieldErrs, &StateError{Kind: ErrValidation, Message: "invalid reservation form"})
	}

	order, err := d.lifecycle.Transition(ctx, in.orderID, in.tableID, in.target)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"order":  in.orderID,
			"status": in.target,
			"user":   by.UserID,
			"error":  err,
		}).Warn("Reservation action failed")
		return errorState(map[string][]string{FormErrorKey: {FormMessage(err)}}, err)
	}

	if d.OnSuccess != nil {
		d.OnSuccess(ctx, by, order)
	}
	return ActionState{Status: ActionSuccess, Order: order}
}

// Submit runs Dispatch in the background and returns its pending result.
func (d *ReservationDispatcher) Submit(ctx context.Context, by models.Profile, form url.Values) *PendingAction {
	p := &PendingAction{state: IdleState(), done: make(chan struct{})}
	go func() {
		p.resolve(d.Dispatch(ctx, by, form))
	}()
	return p
}

// FormMessage renders a domain error for a person.
func FormMessage(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "This order was changed by someone else. Please review the latest state and try again."
	case errors.Is(err, ErrInvalidTransition):
		return "This order can no longer be changed: " + err.Error() + "."
	case errors.Is(err, ErrNotFound):
		return "The order could not be found. It may have been removed."
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrNetwork):
		return "Could not reach the server. Please try again."
	}
	return "Something went wrong. Please try again."
}

// PendingAction is a submitted action. State reports idle until it resolves.
type PendingAction struct {
	mu    sync.Mutex
	state ActionState
	done  chan struct{}
}

func (p *PendingAction) resolve(s ActionState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	close(p.done)
}

func (p *PendingAction) State() ActionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PendingAction) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the action resolves or ctx ends.
func (p *PendingAction) Wait(ctx context.Context) (ActionState, error) {
	select {
	case <-p.done:
		return p.State(), nil
	case <-ctx.Done():
		return p.State(), ctx.Err()
	}
}
