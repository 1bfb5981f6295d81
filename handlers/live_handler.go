package handlers

import (
	"net/http"
	"strings"

	"quizrave/logger"
	"quizrave/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// LiveHandler upgrades attempt owners to a websocket fed by the hub.
type LiveHandler struct {
	attemptService *services.AttemptService
	hub            *services.Hub
	upgrader       websocket.Upgrader
	log            *logger.Logger
}

func NewLiveHandler(attemptService *services.AttemptService, hub *services.Hub, allowedOrigins []string, log *logger.Logger) *LiveHandler {
	return &LiveHandler{
		attemptService: attemptService,
		hub:            hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		log: log,
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and browsers on one of the allowed origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimRight(origin, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

func (h *LiveHandler) WatchAttempt(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	attemptID, ok := idParam(c, "id")
	if !ok {
		return
	}

	state, err := h.attemptService.AttemptState(c.Request.Context(), attemptID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "attempt_id", attemptID, "error", err)
		return
	}
	h.hub.RegisterClient(conn, state)
}
