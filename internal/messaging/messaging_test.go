package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/servicehub/internal/marketplace"
	"github.com/sudo-init-do/servicehub/internal/user"
)

var (
	owner    = user.User{ID: "owner", FirstName: "Olga", Roles: user.Roles{user.RoleCustomer}}
	provider = user.User{ID: "provider", FirstName: "Pete", Roles: user.Roles{user.RoleProvider}}
	rival    = user.User{ID: "rival", FirstName: "Rita", Roles: user.Roles{user.RoleProvider}}
)

type harness struct {
	svc *marketplace.Service
	hub *Hub
	e   *echo.Echo
	bid marketplace.Bid
	// rivalBid competes with bid on the same request.
	rivalBid marketplace.Bid
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hub := NewHub()
	svc := marketplace.NewService(marketplace.NewMemStore(), hub, marketplace.DefaultLimits)
	ctx := context.Background()

	r, err := svc.CreateRequest(ctx, owner, marketplace.RequestInput{Title: "Tile the bathroom", Category: "Construction & Renovation"})
	require.NoError(t, err)
	b, err := svc.SubmitBid(ctx, provider, marketplace.BidInput{ServiceRequestID: r.ID, Price: 800, Proposal: "Three days"})
	require.NoError(t, err)
	rb, err := svc.SubmitBid(ctx, rival, marketplace.BidInput{ServiceRequestID: r.ID, Price: 700, Proposal: "Two days"})
	require.NoError(t, err)

	users := map[string]user.User{owner.ID: owner, provider.ID: provider, rival.ID: rival}
	auth := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if u, ok := users[c.Request().Header.Get("X-Test-User")]; ok {
				user.SetCurrent(c, u)
			}
			return next(c)
		}
	}

	h := NewHandler(svc, hub)
	e := echo.New()
	e.POST("/bid-messages", h.PostMessage, auth)
	e.GET("/bid-messages/:bid_id", h.ListMessages, auth)
	e.GET("/bids/:id/ws", h.ThreadSocket, auth)
	return &harness{svc: svc, hub: hub, e: e, bid: b, rivalBid: rb}
}

func (h *harness) do(as, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Test-User", as)
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func TestPostAndListMessages(t *testing.T) {
	h := newHarness(t)

	rec := h.do(provider.ID, http.MethodPost, "/bid-messages", `{"bid_id":"`+h.bid.ID+`","message":"When can I start?"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first marketplace.BidMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, user.RoleProvider, first.SenderRole)

	rec = h.do(owner.ID, http.MethodPost, "/bid-messages", `{"bid_id":"`+h.bid.ID+`","message":"Monday"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(owner.ID, http.MethodGet, "/bid-messages/"+h.bid.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []marketplace.BidMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "When can I start?", msgs[0].Message)
	assert.Equal(t, "Monday", msgs[1].Message)

	rec = h.do(owner.ID, http.MethodGet, "/bid-messages/"+h.bid.ID+"?since="+first.CreatedAt.Format(time.RFC3339Nano), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 1)
}

func TestMessageEndpointErrors(t *testing.T) {
	h := newHarness(t)

	rec := h.do(rival.ID, http.MethodPost, "/bid-messages", `{"bid_id":"`+h.bid.ID+`","message":"psst"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(owner.ID, http.MethodPost, "/bid-messages", `{"message":"no bid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(owner.ID, http.MethodGet, "/bid-messages/"+h.bid.ID+"?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do("", http.MethodGet, "/bid-messages/"+h.bid.ID, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var evt wsEvent
	require.NoError(t, conn.ReadJSON(&evt))
	return evt
}

func TestThreadSocketReceivesEvents(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bids/" + h.bid.ID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Test-User": {provider.ID}})
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	assert.Equal(t, "presence_join", readEvent(t, conn).Type)
	require.Eventually(t, func() bool { return h.hub.Watchers(h.bid.ID) == 1 }, time.Second, 10*time.Millisecond)

	_, err = h.svc.PostMessage(context.Background(), h.bid.ID, owner, "Can you start Monday?")
	require.NoError(t, err)
	evt := readEvent(t, conn)
	assert.Equal(t, "message_new", evt.Type)
	assert.Equal(t, "Can you start Monday?", evt.Data.(map[string]any)["message"])

	_, _, err = h.svc.AcceptBid(context.Background(), h.bid.ServiceRequestID, h.bid.ID, owner)
	require.NoError(t, err)
	evt = readEvent(t, conn)
	assert.Equal(t, "bid_status", evt.Type)
	assert.Equal(t, "accepted", evt.Data.(map[string]any)["status"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.hub.Watchers(h.bid.ID) == 0 }, time.Second, 10*time.Millisecond)
}

func TestRivalSocketSeesRejection(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bids/" + h.rivalBid.ID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Test-User": {rival.ID}})
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	assert.Equal(t, "presence_join", readEvent(t, conn).Type)
	require.Eventually(t, func() bool { return h.hub.Watchers(h.rivalBid.ID) == 1 }, time.Second, 10*time.Millisecond)

	_, _, err = h.svc.AcceptBid(context.Background(), h.bid.ServiceRequestID, h.bid.ID, owner)
	require.NoError(t, err)
	evt := readEvent(t, conn)
	assert.Equal(t, "bid_status", evt.Type)
	data := evt.Data.(map[string]any)
	assert.Equal(t, h.rivalBid.ID, data["id"])
	assert.Equal(t, "rejected", data["status"])
}

func TestThreadSocketRejectsOutsiders(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bids/" + h.bid.ID + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Test-User": {rival.ID}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubPublishWithoutWatchers(t *testing.T) {
	hub := NewHub()
	assert.NoError(t, hub.MessagePosted(context.Background(), marketplace.ServiceRequest{}, marketplace.Bid{ID: "b"}, marketplace.BidMessage{}))
	assert.Zero(t, hub.Watchers("b"))
}
