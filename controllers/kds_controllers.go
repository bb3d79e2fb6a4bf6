package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/cafein/cafein-backend/kds"
	"github.com/cafein/cafein-backend/middlewares"
	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Live socket request types.
const (
	liveQuery       = "query"
	liveRefresh     = "refresh"
	liveReservation = "reservation_action"
)

type liveRequest struct {
	Type      string      `json:"type"`
	Page      int         `json:"page"`
	Limit     int         `json:"limit"`
	Search    string      `json:"search"`
	ID        json.Number `json:"id"`
	TableID   json.Number `json:"table_id"`
	Status    string      `json:"status"`
	Action    string      `json:"action"`
	RequestID string      `json:"request_id"`
}

type actionResult struct {
	RequestID string               `json:"request_id,omitempty"`
	State     services.ActionState `json:"state"`
}

// LiveController serves the staff order board over a websocket. Each
// connection owns one reconcile session that pushes a fresh snapshot
// whenever orders change.
type LiveController struct {
	Hub        *kds.Hub
	Reconciler *services.Reconciler
	Dispatcher *services.ReservationDispatcher
	upgrader   websocket.Upgrader
	log        logrus.FieldLogger
}

func NewLiveController(hub *kds.Hub, reconciler *services.Reconciler, dispatcher *services.ReservationDispatcher, allowedOrigin string, log logrus.FieldLogger) *LiveController {
	return &LiveController{
		Hub:        hub,
		Reconciler: reconciler,
		Dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
		log: utils.LoggerOrDefault(log),
	}
}

// ServeOrders -> GET /ws/orders?token=&page=&limit=&search=
func (lc *LiveController) ServeOrders(c *gin.Context) {
	profile := middlewares.ProfileFrom(c)

	var q services.OrderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	q.Role = profile.Role

	ws, err := lc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		lc.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	client := kds.NewClient(ws, profile.UserID, profile.Role, lc.log)
	lc.Hub.Register(client)
	defer lc.Hub.Unregister(client)

	session := lc.Reconciler.Mount(ctx, q, services.ReconcileHandlers{
		OnSnapshot: func(s services.Snapshot) {
			client.Send(kds.Message{Event: kds.EventOrdersSnapshot, Data: s})
		},
		OnError: func(err error) {
			client.Send(kds.Message{Event: kds.EventError, Data: services.FormMessage(err)})
		},
	})
	defer session.Close()

	go client.WritePump()
	client.ReadPump(func(data []byte) {
		lc.handle(ctx, client, session, profile, data)
	})
}

func (lc *LiveController) handle(ctx context.Context, client *kds.Client, session *services.ReconcileSession, profile models.Profile, data []byte) {
	var req liveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		client.Send(kds.Message{Event: kds.EventError, Data: "malformed message"})
		return
	}

	switch req.Type {
	case liveQuery:
		session.SetQuery(services.OrderQuery{Page: req.Page, Limit: req.Limit, Search: req.Search, Role: profile.Role})
	case liveRefresh:
		session.Refresh()
	case liveReservation:
		lc.submitReservation(ctx, client, profile, req)
	default:
		client.Send(kds.Message{Event: kds.EventError, Data: "unknown message type"})
	}
}

// submitReservation runs the action off the read loop and reports the
// result to this client only. Everyone else learns of it from the feed.
func (lc *LiveController) submitReservation(ctx context.Context, client *kds.Client, profile models.Profile, req liveRequest) {
	if len(services.ReservationActions(profile.Role)) == 0 {
		client.Send(kds.Message{Event: kds.EventActionResult, Data: actionResult{
			RequestID: req.RequestID,
			State: services.ActionState{
				Status: services.ActionError,
				Errors: map[string][]string{services.FormErrorKey: {"Your role cannot act on reservations."}},
			},
		}})
		return
	}

	status := req.Status
	if target, ok := services.ActionTarget(req.Action); ok {
		status = target
	}
	form := url.Values{}
	form.Set("id", req.ID.String())
	form.Set("table_id", req.TableID.String())
	form.Set("status", status)

	pending := lc.Dispatcher.Submit(ctx, profile, form)
	go func() {
		select {
		case <-pending.Done():
			client.Send(kds.Message{Event: kds.EventActionResult, Data: actionResult{RequestID: req.RequestID, State: pending.State()}})
		case <-client.Done():
		}
	}()
}

