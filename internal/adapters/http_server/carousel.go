package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"alem_concierge/internal/adapters/observability"
	"alem_concierge/internal/carousel"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the stream carries public data only
	CheckOrigin: func(r *http.Request) bool { return true },
}

type carouselEvent struct {
	Index int    `json:"index"`
	Error string `json:"error,omitempty"`
}

type carouselCommand struct {
	Select *int `json:"select"`
}

// carousel streams the testimonial index. Each connection owns one timer,
// started on connect and stopped when the connection closes.
func (h *Handlers) carousel(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("carousel upgrade failed")
		return
	}
	observability.CarouselStreams.Inc()
	defer observability.CarouselStreams.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan carouselEvent, 1)
	timer := carousel.New(len(h.Catalog.Testimonials()), h.CarouselPeriod,
		carousel.OnChange(func(i int) { pushLatest(events, carouselEvent{Index: i}) }))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writeLoop(ctx, conn, events, carouselEvent{Index: timer.Index()})
		// reader is blocked on the socket; closing it releases the read loop
		_ = conn.Close()
	}()

	if err := timer.Start(ctx); err != nil {
		log.Error().Err(err).Msg("carousel timer start failed")
	} else {
		readLoop(conn, timer, events)
	}

	timer.Stop()
	cancel()
	wg.Wait()
	_ = conn.Close()
}

// pushLatest replaces any undelivered event with ev so a slow client only
// ever sees the newest index.
func pushLatest(ch chan carouselEvent, ev carouselEvent) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func readLoop(conn *websocket.Conn, timer *carousel.Timer, events chan carouselEvent) {
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("carousel stream closed")
			}
			return
		}
		var cmd carouselCommand
		if err := json.Unmarshal(raw, &cmd); err != nil || cmd.Select == nil {
			pushLatest(events, carouselEvent{Index: timer.Index(), Error: "expected {\"select\": n}"})
			continue
		}
		if err := timer.Select(*cmd.Select); err != nil {
			pushLatest(events, carouselEvent{Index: timer.Index(), Error: err.Error()})
		}
	}
}

// writeLoop is the only writer on conn.
func writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan carouselEvent, first carouselEvent) {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	write := func(ev carouselEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(ev)
	}
	if err := write(first); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		case ev := <-events:
			if err := write(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
