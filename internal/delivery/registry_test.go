package delivery_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/kioko/matchpulse/internal/delivery"
	"github.com/kioko/matchpulse/pkg/logger"
	"github.com/kioko/matchpulse/pkg/metrics"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeConn records delivered payloads and can be told to fail sends.
type fakeConn struct {
	mu     sync.Mutex
	sent   [][]byte
	fail   bool
	closed bool
}

func (c *fakeConn) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("send failed")
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeConn) wasClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testMessage(matchID string) delivery.Message {
	return delivery.Message{
		Type:      "event",
		MatchID:   matchID,
		Timestamp: time.Now().UTC(),
		Data:      json.RawMessage(`{"event_type":"goal"}`),
	}
}

func TestRegistry(t *testing.T) {
	Convey("Given a connection registry", t, func() {
		ctx := context.Background()
		r := delivery.NewRegistry()

		Convey("When broadcasting to subscribers of a match", func() {
			subscribed := &fakeConn{}
			other := &fakeConn{}

			r.Register(ctx, "c1", subscribed)
			r.Register(ctx, "c2", other)
			So(r.Subscribe(ctx, "c1", "m1"), ShouldBeNil)
			So(r.Subscribe(ctx, "c2", "m2"), ShouldBeNil)

			res := r.Broadcast(ctx, testMessage("m1"))

			Convey("Then only the match's subscribers receive it", func() {
				So(res.Delivered, ShouldEqual, 1)
				So(res.Attempted, ShouldEqual, 1)
				So(subscribed.sentCount(), ShouldEqual, 1)
				So(other.sentCount(), ShouldEqual, 0)
			})

			Convey("Then the envelope carries the payload", func() {
				var msg delivery.Message
				So(json.Unmarshal(subscribed.sent[0], &msg), ShouldBeNil)
				So(msg.MatchID, ShouldEqual, "m1")
				So(string(msg.Data), ShouldContainSubstring, "goal")
			})
		})

		Convey("When a send fails", func() {
			healthy := &fakeConn{}
			broken := &fakeConn{fail: true}

			r.Register(ctx, "ok", healthy)
			r.Register(ctx, "bad", broken)
			So(r.Subscribe(ctx, "ok", "m1"), ShouldBeNil)
			So(r.Subscribe(ctx, "bad", "m1"), ShouldBeNil)

			res := r.Broadcast(ctx, testMessage("m1"))

			Convey("Then the failing connection is dropped on the spot", func() {
				So(res.Delivered, ShouldEqual, 1)
				So(res.Attempted, ShouldEqual, 2)
				So(r.Size(), ShouldEqual, 1)
				So(broken.wasClosed(), ShouldBeTrue)
			})

			Convey("Then later broadcasts skip it", func() {
				again := r.Broadcast(ctx, testMessage("m1"))
				So(again.Delivered, ShouldEqual, 1)
				So(again.Attempted, ShouldEqual, 1)
			})
		})

		Convey("When subscribing an unknown connection", func() {
			So(r.Subscribe(ctx, "ghost", "m1"), ShouldWrap, delivery.ErrUnknownConnection)
			So(r.Unsubscribe(ctx, "ghost", "m1"), ShouldWrap, delivery.ErrUnknownConnection)
		})

		Convey("When unsubscribing", func() {
			c := &fakeConn{}
			r.Register(ctx, "c1", c)
			So(r.Subscribe(ctx, "c1", "m1"), ShouldBeNil)
			So(r.Unsubscribe(ctx, "c1", "m1"), ShouldBeNil)

			So(r.Broadcast(ctx, testMessage("m1")).Delivered, ShouldEqual, 0)
			So(r.Subscribers("m1"), ShouldEqual, 0)
		})

		Convey("When re-registering an existing ID", func() {
			old := &fakeConn{}
			replacement := &fakeConn{}
			r.Register(ctx, "c1", old)
			r.Register(ctx, "c1", replacement)

			So(old.wasClosed(), ShouldBeTrue)
			So(r.Size(), ShouldEqual, 1)
		})

		Convey("When registrations expire", func() {
			short := delivery.NewRegistry(delivery.WithConnectionTTL(30 * time.Millisecond))
			kept := &fakeConn{}
			stale := &fakeConn{}

			short.Register(ctx, "kept", kept)
			short.Register(ctx, "stale", stale)

			time.Sleep(50 * time.Millisecond)
			short.Touch("kept")

			Convey("Then only touched connections survive the sweep", func() {
				// Touch extends "kept" past now; "stale" is already expired.
				dropped := short.SweepExpired(ctx)
				So(dropped, ShouldEqual, 1)
				So(short.Size(), ShouldEqual, 1)
				So(stale.wasClosed(), ShouldBeTrue)
				So(kept.wasClosed(), ShouldBeFalse)
			})
		})

		Convey("When a collector observes deliveries", func() {
			c := metrics.NewCollector()
			observed := delivery.NewRegistry(delivery.WithCollector(c))
			conn := &fakeConn{}

			observed.Register(ctx, "c1", conn)
			So(observed.Subscribe(ctx, "c1", "m1"), ShouldBeNil)
			observed.Broadcast(ctx, testMessage("m1"))

			snap := c.Snapshot()
			So(snap.Cost.GatewayMessages, ShouldEqual, 1)

			Convey("Then the broadcast duration lands in the delivery stage", func() {
				So(snap.Latency[metrics.StageDelivery].Count, ShouldEqual, 1)
			})
		})
	})
}

func TestWebsocketHandler(t *testing.T) {
	Convey("Given the websocket endpoint", t, func() {
		ctx := context.Background()
		r := delivery.NewRegistry()
		srv := httptest.NewServer(delivery.NewHandler(r))
		defer srv.Close()

		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

		dial := func(rawURL string) *websocket.Conn {
			ws, resp, err := websocket.DefaultDialer.Dial(rawURL, nil)
			So(err, ShouldBeNil)
			if resp != nil {
				_ = resp.Body.Close()
			}
			return ws
		}

		readType := func(ws *websocket.Conn) map[string]string {
			So(ws.SetReadDeadline(time.Now().Add(3*time.Second)), ShouldBeNil)
			_, data, err := ws.ReadMessage()
			So(err, ShouldBeNil)
			var out map[string]string
			So(json.Unmarshal(data, &out), ShouldBeNil)
			return out
		}

		Convey("When a client connects", func() {
			ws := dial(wsURL)
			defer func() { _ = ws.Close() }()

			hello := readType(ws)
			So(hello["type"], ShouldEqual, "connected")
			So(hello["connection_id"], ShouldNotBeEmpty)

			Convey("And subscribes to a match", func() {
				So(ws.WriteJSON(map[string]string{"action": "subscribe", "match_id": "m1"}), ShouldBeNil)
				ack := readType(ws)
				So(ack["action"], ShouldEqual, "subscribed")
				So(ack["match_id"], ShouldEqual, "m1")
				So(ack["timestamp"], ShouldNotBeEmpty)

				Convey("Then broadcasts for the match reach it", func() {
					So(r.Broadcast(ctx, testMessage("m1")).Delivered, ShouldEqual, 1)

					So(ws.SetReadDeadline(time.Now().Add(3*time.Second)), ShouldBeNil)
					_, data, err := ws.ReadMessage()
					So(err, ShouldBeNil)

					var msg delivery.Message
					So(json.Unmarshal(data, &msg), ShouldBeNil)
					So(msg.MatchID, ShouldEqual, "m1")
				})
			})

			Convey("And sends a ping", func() {
				So(ws.WriteJSON(map[string]string{"action": "ping"}), ShouldBeNil)
				pong := readType(ws)
				So(pong["action"], ShouldEqual, "pong")
				So(pong["timestamp"], ShouldNotBeEmpty)
			})

			Convey("And sends an unknown action", func() {
				So(ws.WriteJSON(map[string]string{"action": "dance"}), ShouldBeNil)
				So(readType(ws)["type"], ShouldEqual, "error")
			})
		})

		Convey("When a client connects with ?match_id=", func() {
			ws := dial(wsURL + "?match_id=m9")
			defer func() { _ = ws.Close() }()

			hello := readType(ws)
			So(hello["type"], ShouldEqual, "connected")

			Convey("Then it is subscribed immediately", func() {
				deadline := time.Now().Add(3 * time.Second)
				for r.Subscribers("m9") == 0 && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				So(r.Broadcast(ctx, testMessage("m9")).Delivered, ShouldEqual, 1)
			})
		})
	})
}
