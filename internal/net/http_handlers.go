package net

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	client "emberhollow/client"
	"emberhollow/client/internal/interaction"
	"emberhollow/client/logging"
)

type HTTPHandlerConfig struct {
	TickRate  int
	Publisher logging.Publisher
}

// runReportPayload is the wire shape of an interaction run report; errors
// flatten to strings so the report round-trips through JSON.
type runReportPayload struct {
	PluginID string              `json:"pluginId"`
	Status   interaction.Status  `json:"status"`
	State    interaction.State   `json:"state"`
	Result   *interaction.Result `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
}

func toReportPayload(report interaction.RunReport) runReportPayload {
	payload := runReportPayload{
		PluginID: report.PluginID,
		Status:   report.Status,
		State:    report.State,
		Result:   report.Result,
	}
	if report.Err != nil {
		payload.Error = report.Err.Error()
	}
	return payload
}

type executeRequest struct {
	ID       string         `json:"id"`
	Config   map[string]any `json:"config,omitempty"`
	ActorID  string         `json:"actorId"`
	TargetID string         `json:"targetId"`
}

type slotRequest struct {
	SlotID       string                        `json:"slotId"`
	ActorID      string                        `json:"actorId"`
	TargetID     string                        `json:"targetId"`
	Interactions []interaction.SlotInteraction `json:"interactions"`
}

// NewHTTPHandler builds the client's HTTP surface: session reads and flag
// writes, interaction execution, world-time control, and the WebSocket feed.
func NewHTTPHandler(service *client.Service, hub *client.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status      string   `json:"status"`
			ServerTime  int64    `json:"serverTime"`
			TickRate    int      `json:"tickRate"`
			LocalOnly   bool     `json:"localOnly"`
			Subscribers int      `json:"subscribers"`
			Version     int64    `json:"sessionVersion"`
			Location    string   `json:"location,omitempty"`
			Scene       string   `json:"scene,omitempty"`
			StatSources []string `json:"statSources"`
			Telemetry   any      `json:"telemetry"`
		}{
			Status:      "ok",
			ServerTime:  time.Now().UnixMilli(),
			TickRate:    cfg.TickRate,
			LocalOnly:   service.LocalOnly(),
			Subscribers: hub.SubscriberCount(),
			Version:     -1,
			Location:    service.Location(),
			Scene:       service.Scene(),
			StatSources: service.StatSources(),
			Telemetry:   service.Telemetry(),
		}
		if snapshot := service.Session(); snapshot != nil {
			payload.Version = snapshot.Version
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/session", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		snapshot := service.Session()
		if snapshot == nil {
			httpError(w, "no session loaded", nethttp.StatusNotFound)
			return
		}
		writeJSON(w, nethttp.StatusOK, snapshot)
	})

	mux.HandleFunc("/session/flags", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Path  []string `json:"path"`
			Value any      `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		confirmed, err := service.SetFlag(r.Context(), req.Path, req.Value)
		if err != nil {
			httpError(w, err.Error(), nethttp.StatusBadGateway)
			return
		}
		writeJSON(w, nethttp.StatusOK, confirmed)
	})

	mux.HandleFunc("/interactions", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, nethttp.StatusOK, service.Interactions())
	})

	mux.HandleFunc("/interactions/execute", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req executeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		if req.ID == "" {
			httpError(w, "id is required", nethttp.StatusBadRequest)
			return
		}
		report := service.RunInteraction(r.Context(), req.ID, req.Config, req.ActorID, req.TargetID)
		writeJSON(w, nethttp.StatusOK, toReportPayload(report))
	})

	mux.HandleFunc("/slots/execute", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req slotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		reports := service.RunSlot(r.Context(), req.SlotID, req.ActorID, req.TargetID, req.Interactions)
		payloads := make([]runReportPayload, 0, len(reports))
		for _, report := range reports {
			payloads = append(payloads, toReportPayload(report))
		}
		writeJSON(w, nethttp.StatusOK, payloads)
	})

	mux.HandleFunc("/world/advance", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Minutes int64 `json:"minutes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		confirmed, err := service.AdvanceWorldTime(r.Context(), req.Minutes)
		if err != nil {
			httpError(w, err.Error(), nethttp.StatusBadGateway)
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"worldTime": confirmed.WorldTime, "version": confirmed.Version})
	})

	mux.HandleFunc("/locations/enter", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req struct {
			LocationID string `json:"locationId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LocationID == "" {
			httpError(w, "locationId is required", nethttp.StatusBadRequest)
			return
		}
		events := service.EnterLocation(r.Context(), req.LocationID)
		writeJSON(w, nethttp.StatusOK, map[string]any{"location": req.LocationID, "events": len(events)})
	})

	mux.HandleFunc("/scenes/start", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req struct {
			SceneID string `json:"sceneId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SceneID == "" {
			httpError(w, "sceneId is required", nethttp.StatusBadRequest)
			return
		}
		events := service.StartScene(r.Context(), req.SceneID)
		writeJSON(w, nethttp.StatusOK, map[string]any{"scene": req.SceneID, "events": len(events)})
	})

	mux.HandleFunc("/scenes/end", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		events := service.EndScene(r.Context())
		writeJSON(w, nethttp.StatusOK, map[string]any{"events": len(events)})
	})

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	mux.HandleFunc("/ws", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			publisher.Publish(r.Context(), logging.Event{
				Type:     "ws_upgrade_failed",
				Severity: logging.SeverityWarn,
				Category: logging.CategorySystem,
				Payload:  map[string]any{"error": err.Error()},
			})
			return
		}

		id, err := hub.Subscribe(conn, service.Session())
		if err != nil {
			conn.Close()
			return
		}

		// The feed is one-way; the read loop only notices the peer going
		// away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Unsubscribe(id)
				publisher.Publish(context.Background(), logging.Event{
					Type:     "subscriber_closed",
					Severity: logging.SeverityDebug,
					Category: logging.CategorySystem,
					Payload:  map[string]any{"subscriber": id},
				})
				return
			}
		}
	})

	return mux
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
