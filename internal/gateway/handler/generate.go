package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"reportify/internal/event"
	"reportify/internal/pipeline"
	"reportify/internal/store"
)

const (
	generateWSWriteWait = 10 * time.Second
	generateWSPongWait  = 60 * time.Second
	generateWSPingEvery = (generateWSPongWait * 9) / 10
)

var generateWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleGenerateWS runs one generation per connection. The client sends a
// single request JSON; the server streams event envelopes back and closes
// after the final event.
func (s *Service) HandleGenerateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := generateWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(generateWSPongWait)); err != nil {
		log.Printf("generate ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(generateWSPongWait))
	})

	var req pipeline.GenerationRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInvalidFramePayloadData, "invalid request"))
		return
	}

	// Reads after the request only service pong frames.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	events := make(chan event.Event, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// The pipeline keeps emitting after a write failure; drain until the
		// channel is closed so Run never blocks on a full buffer.
		defer func() {
			for range events {
			}
		}()
		ticker := time.NewTicker(generateWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				frame, err := event.MarshalWire(ev)
				if err != nil {
					log.Printf("generate ws marshal event failed: %v", err)
					continue
				}
				if err := conn.SetWriteDeadline(time.Now().Add(generateWSWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(generateWSWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	res, runErr := s.gen.Run(ctx, req, &event.ChannelEmitter{Ch: events})
	close(events)
	<-writerDone

	if runErr != nil {
		log.Printf("generate ws run failed: %v", runErr)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "generation failed"))
		return
	}

	if s.runs != nil {
		if err := s.runs.Save(store.RunDocument{
			RunID:    res.RunID,
			Title:    res.Title,
			Document: res.Document,
			Problems: res.Problems,
		}); err != nil {
			log.Printf("generate ws save run %s failed: %v", res.RunID, err)
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, res.RunID))
}
