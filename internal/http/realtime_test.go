package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/ws"
)

func (f *routerFixture) serve(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(f.router.Handler())
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialRealtime(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := ws.Encode(event, data)
	if err != nil {
		t.Fatalf("encode %s: %v", event, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) ws.Envelope {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env ws.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode frame %q: %v", raw, err)
	}
	return env
}

func (f *routerFixture) joinRealtime(t *testing.T, url string, u *domain.User) *websocket.Conn {
	t.Helper()
	conn := dialRealtime(t, url)
	writeEvent(t, conn, ws.EventJoin, ws.JoinRequest{Token: f.token(t, u), IdentityID: u.ID})
	if env := readEvent(t, conn); env.Event != ws.EventJoined {
		t.Fatalf("expected joined, got %s %s", env.Event, env.Data)
	}
	return conn
}

func TestRealtimeDeliversToRecipientAndSenderDevices(t *testing.T) {
	f := newRouterFixture(t, newRateLimiterStub())
	url := f.serve(t)

	phone := f.joinRealtime(t, url, f.victim)
	laptop := f.joinRealtime(t, url, f.victim)
	counselor := f.joinRealtime(t, url, f.counselor)

	writeEvent(t, phone, ws.EventSendMessage, ws.SendRequest{From: f.victim.ID, To: f.counselor.ID, Text: "hello"})

	for name, conn := range map[string]*websocket.Conn{"laptop": laptop, "counselor": counselor} {
		env := readEvent(t, conn)
		if env.Event != ws.EventReceiveMessage {
			t.Fatalf("%s: expected receive_message, got %s", name, env.Event)
		}
		var payload ws.ReceivePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			t.Fatalf("%s: decode payload: %v", name, err)
		}
		if payload.Message.Text != "hello" || payload.Message.From.ID != f.victim.ID || payload.Message.To.ID != f.counselor.ID {
			t.Fatalf("%s: unexpected message %+v", name, payload.Message)
		}
	}

	if err := phone.SetReadDeadline(time.Now().Add(200 * time.Millisecond)); err != nil {
		t.Fatalf("read deadline: %v", err)
	}
	if _, raw, err := phone.ReadMessage(); err == nil {
		t.Fatalf("originating connection received %s", raw)
	}

	stored := f.store.Messages()
	if len(stored) != 1 {
		t.Fatalf("expected one stored message, got %d", len(stored))
	}
	if strings.Contains(stored[0].Text, "hello") {
		t.Fatalf("message stored in plaintext: %q", stored[0].Text)
	}
}

func TestRealtimeRejectsUnknownOrigin(t *testing.T) {
	f := newRouterFixture(t, newRateLimiterStub())
	url := f.serve(t)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		_ = conn.Close()
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}
}

func TestRealtimeClosesOversizedFrames(t *testing.T) {
	f := newRouterFixture(t, newRateLimiterStub())
	f.router.wsMax = 512
	url := f.serve(t)

	conn := f.joinRealtime(t, url, f.victim)
	writeEvent(t, conn, ws.EventSendMessage, ws.SendRequest{To: f.counselor.ID, Text: strings.Repeat("x", 1024)})

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("read deadline: %v", err)
	}
	if _, raw, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection to close, got %s", raw)
	}
	if n := len(f.store.Messages()); n != 0 {
		t.Fatalf("expected nothing stored, got %d", n)
	}
}

func TestRequestsAndRealtimeEventsCarryDBDeadline(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(logger, Services{}, Options{Limiter: newRateLimiterStub(), DBTimeout: time.Second})
	t.Cleanup(router.Close)

	var requestDeadline bool
	handler := router.audit(func(w http.ResponseWriter, req *http.Request) {
		_, requestDeadline = req.Context().Deadline()
		w.WriteHeader(http.StatusNoContent)
	})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !requestDeadline {
		t.Fatal("expected request context to carry a deadline")
	}

	var eventDeadline time.Time
	bounded := router.boundedHandle(func(ctx context.Context, _ []byte) {
		eventDeadline, _ = ctx.Deadline()
	})
	start := time.Now()
	bounded(context.Background(), nil)
	if eventDeadline.IsZero() || eventDeadline.Sub(start) > time.Second+100*time.Millisecond {
		t.Fatalf("unexpected event deadline %v", eventDeadline)
	}

	router.dbTimeout = 0
	var unbounded bool
	router.boundedHandle(func(ctx context.Context, _ []byte) {
		_, unbounded = ctx.Deadline()
	})(context.Background(), nil)
	if unbounded {
		t.Fatal("zero timeout should leave the context untouched")
	}
}

type stubSubscriber struct{ id int }

func (*stubSubscriber) Send([]byte) error { return nil }
func (*stubSubscriber) Close()            {}

func realtimeConnectionsGauge(t *testing.T) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "hope_connect_realtime_connections" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("realtime connections gauge not registered")
	return 0
}

func TestConnectionsGaugeSumsEveryRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	first := NewRouter(logger, Services{}, Options{Limiter: newRateLimiterStub()})
	second := NewRouter(logger, Services{}, Options{Limiter: newRateLimiterStub()})
	before := realtimeConnectionsGauge(t)
	first.hub.Register("a", &stubSubscriber{id: 1})
	second.hub.Register("b", &stubSubscriber{id: 2})
	second.hub.Register("b", &stubSubscriber{id: 3})

	if got := realtimeConnectionsGauge(t) - before; got != 3 {
		t.Fatalf("expected 3 connections across routers, got %v", got)
	}

	second.Close()
	if got := realtimeConnectionsGauge(t) - before; got != 1 {
		t.Fatalf("expected closed router to drop out, got %v", got)
	}
	first.Close()
	if got := realtimeConnectionsGauge(t) - before; got != 0 {
		t.Fatalf("expected no tracked connections, got %v", got)
	}
}
