package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/pkg/metrics"
)

// viewBuffer is how many view commands may queue per client before new ones
// are dropped. At 60 frames a second this is roughly four seconds.
const viewBuffer = 256

const pingInterval = 30 * time.Second

// Message types sent to map clients.
const (
	ViewInit     = "init"
	ViewSnapshot = "snapshot"
	ViewPolyline = "polyline"
	ViewMarker   = "marker"
	ViewFit      = "fit"
	ViewPan      = "pan"
	ViewZoom     = "zoom"
	ViewStatus   = "status"
	ViewError    = "error"
)

// ViewMessage is the envelope of every message sent to a map client.
type ViewMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type initView struct {
	Center domain.GeoPoint `json:"center"`
	Zoom   int             `json:"zoom"`
}

type polylineView struct {
	ID     string               `json:"id"`
	Coords [][2]float64         `json:"coords"`
	Style  domain.PolylineStyle `json:"style"`
}

type markerView struct {
	Position domain.GeoPoint `json:"position"`
	Rotation float64         `json:"rotation"`
	Icon     string          `json:"icon"`
}

type fitView struct {
	Bounds  domain.Bounds `json:"bounds"`
	Padding int           `json:"padding"`
}

type panView struct {
	Position domain.GeoPoint `json:"position"`
	Animated bool            `json:"animated"`
}

type zoomView struct {
	Level int `json:"level"`
}

// ViewHub implements ports.MapView by broadcasting view commands to every
// attached browser map. A slow client never blocks playback: its messages
// are dropped once its buffer is full.
type ViewHub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}

	center domain.GeoPoint
	zoom   int
}

// NewViewHub creates a hub. New clients start centred on center at zoom.
func NewViewHub(center domain.GeoPoint, zoom int) *ViewHub {
	return &ViewHub{
		clients: make(map[chan []byte]struct{}),
		center:  center,
		zoom:    zoom,
	}
}

// Subscribe attaches a client and returns its message stream and a function
// that detaches it and closes the stream.
func (h *ViewHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, viewBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Clients returns the number of attached clients.
func (h *ViewHub) Clients() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *ViewHub) RenderPolyline(_ context.Context, id string, coords [][2]float64, style domain.PolylineStyle) error {
	return h.broadcast(ViewPolyline, polylineView{ID: id, Coords: coords, Style: style})
}

func (h *ViewHub) RenderMarker(_ context.Context, pos domain.GeoPoint, rotation float64, icon string) error {
	return h.broadcast(ViewMarker, markerView{Position: pos, Rotation: rotation, Icon: icon})
}

func (h *ViewHub) FitViewport(_ context.Context, bounds domain.Bounds, padding int) error {
	return h.broadcast(ViewFit, fitView{Bounds: bounds, Padding: padding})
}

func (h *ViewHub) PanViewport(_ context.Context, pos domain.GeoPoint, animated bool) error {
	return h.broadcast(ViewPan, panView{Position: pos, Animated: animated})
}

func (h *ViewHub) SetZoom(_ context.Context, level int) error {
	return h.broadcast(ViewZoom, zoomView{Level: level})
}

func (h *ViewHub) broadcast(typ string, data any) error {
	payload, err := encodeView(typ, data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- payload:
		default:
			metrics.ViewMessagesDropped.Inc()
		}
	}
	return nil
}

func encodeView(typ string, data any) ([]byte, error) {
	payload, err := json.Marshal(ViewMessage{Type: typ, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s view: %w", typ, err)
	}
	return payload, nil
}

// wsMessage is sent by a map client.
type wsMessage struct {
	Action string `json:"action"` // toggle | reset | reload | interaction
	Event  string `json:"event"`  // dragstart | zoomstart, for interaction
}

// WebSocketHandler attaches a browser map to the replay. The client first
// receives the initial centre and a snapshot of the current replay, then
// every view command. It may send controls and map interaction events.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		log := slog.Default().With("remote", c.RemoteAddr().String())
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates, unsubscribe := deps.Views.Subscribe()
		defer unsubscribe()

		var mu sync.Mutex
		write := func(msgType int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(msgType, data)
		}
		writeView := func(typ string, v any) error {
			data, err := encodeView(typ, v)
			if err != nil {
				return err
			}
			return write(websocket.TextMessage, data)
		}

		if err := writeView(ViewInit, initView{Center: deps.Views.center, Zoom: deps.Views.zoom}); err != nil {
			log.Warn("ws init failed", "error", err)
			return
		}
		if err := writeView(ViewSnapshot, deps.Replay.Snapshot()); err != nil {
			log.Warn("ws snapshot failed", "error", err)
			return
		}

		go func() {
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case msg, ok := <-updates:
					if !ok {
						return
					}
					if err := write(websocket.TextMessage, msg); err != nil {
						return
					}
				case <-ticker.C:
					if err := write(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeView(ViewError, errorView("invalid JSON"))
				continue
			}

			st, err := dispatch(ctx, deps, m)
			if err != nil {
				_ = writeView(ViewError, errorView(err.Error()))
				continue
			}
			_ = writeView(ViewStatus, statusResponse(st))
		}

		log.Info("ws client disconnected")
	}
}

func dispatch(ctx context.Context, deps *Dependencies, m wsMessage) (domain.ReplayStatus, error) {
	if m.Action == "interaction" {
		if !deps.Replay.MarkInteraction(ctx, m.Event) {
			return domain.ReplayStatus{}, fmt.Errorf("unknown interaction event: %q", m.Event)
		}
		return deps.Replay.Status(), nil
	}
	if err := deps.Replay.Execute(ctx, domain.ControlCommand(m.Action)); err != nil {
		return domain.ReplayStatus{}, err
	}
	return deps.Replay.Status(), nil
}

func errorView(msg string) map[string]string {
	return map[string]string{"message": msg}
}
