package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"geofriends-service/internal/auth"
	"geofriends-service/internal/models"
	"geofriends-service/internal/observability"
	"geofriends-service/internal/presence"
	"geofriends-service/internal/repositories"
)

// locationFrame is what a presence client pushes over the socket: either a
// fix or an error classification.
type locationFrame struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Error string  `json:"error,omitempty"`
}

// PresenceWebSocketHandler runs one presence tracker per connected session.
// The client plays the geolocation collaborator: it pushes fixes (or error
// reports) and the server-side tracker consumes them on its own schedule.
type PresenceWebSocketHandler struct {
	users    repositories.UserRepository
	settings repositories.SettingsRepository
	watcher  *presence.Watcher
	sessions *auth.Sessions
}

// NewPresenceWebSocketHandler constructs a PresenceWebSocketHandler.
func NewPresenceWebSocketHandler(users repositories.UserRepository, settings repositories.SettingsRepository, watcher *presence.Watcher, sessions *auth.Sessions) *PresenceWebSocketHandler {
	return &PresenceWebSocketHandler{users: users, settings: settings, watcher: watcher, sessions: sessions}
}

// Handle upgrades the connection and drives the presence session until the
// client disconnects or permission is denied.
func (h *PresenceWebSocketHandler) Handle(c *gin.Context) {
	_, span := otel.Tracer("geofriends-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	token := c.GetHeader("Authorization")
	if token == "" {
		if q := c.Query("token"); q != "" {
			token = "Bearer " + q
		}
	}
	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	timings, err := h.settings.GetTimings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load timing settings"})
		return
	}
	queryTimeout := time.Duration(timings.GPSQueryTimeout) * time.Millisecond

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	observability.IncWSActive("presence")
	observability.IncWSEvent("presence", "ws_connect")

	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan locationFrame, 4)

	// Reader: the connection is the sample source; closing it ends the
	// session.
	go func() {
		defer cancel()
		for {
			var frame locationFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer func() {
			cancel()
			conn.Close()
			observability.DecWSActive("presence")
			observability.IncWSEvent("presence", "ws_disconnect")
		}()
		sampler := &frameSampler{frames: frames}
		tracker := presence.NewTracker(userID, sampler, h.users, h.watcher, queryTimeout)
		tracker.Run(ctx)
	}()
}

func (h *PresenceWebSocketHandler) validateToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		userID, _, err := h.sessions.Validate(parts[1])
		return userID, err
	}
	return "", fmt.Errorf("invalid token")
}

// frameSampler adapts client-pushed frames to the tracker's pull model.
type frameSampler struct {
	frames chan locationFrame
}

func (s *frameSampler) Sample(ctx context.Context) (models.Location, error) {
	select {
	case <-ctx.Done():
		return models.Location{}, ctx.Err()
	case frame := <-s.frames:
		frame = s.newest(frame)
		switch frame.Error {
		case "":
			return models.Location{Lat: frame.Lat, Lng: frame.Lng}, nil
		case "permission_denied":
			return models.Location{}, presence.ErrPermissionDenied
		default:
			return models.Location{}, errors.New(frame.Error)
		}
	}
}

// newest drains frames that queued up between ticks so the sample reflects
// the latest fix, not one that is several intervals old.
func (s *frameSampler) newest(frame locationFrame) locationFrame {
	for {
		select {
		case next := <-s.frames:
			frame = next
		default:
			return frame
		}
	}
}
