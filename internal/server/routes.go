package server

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kerry-okpere/ai-video-conferencing/internal/logging"
	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
	"github.com/kerry-okpere/ai-video-conferencing/internal/signaling"
)

// Options configures the HTTP surface.
type Options struct {
	// AllowedOrigins lists browser origins allowed to call the API and open
	// the websocket. "*" allows any origin.
	AllowedOrigins []string
}

func (o Options) allowAll() bool {
	return len(o.AllowedOrigins) == 0 || slices.Contains(o.AllowedOrigins, "*")
}

// SetupRouter wires the websocket endpoint, the health check and the room API.
func SetupRouter(hub *signaling.Hub, opts Options, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	config := cors.DefaultConfig()
	if opts.allowAll() {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = opts.AllowedOrigins
	}
	config.AllowHeaders = []string{"Content-Type", "Origin", "Accept"}
	config.AllowMethods = []string{"GET", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ws", ServeWs(hub, newUpgrader(opts), log))

	api := router.Group("/api")
	rooms := api.Group("/rooms")
	rooms.GET("", listRooms(hub))
	rooms.GET("/:roomID", getRoom(hub))

	return router
}

func newUpgrader(opts Options) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin.
			if origin == "" || opts.allowAll() {
				return true
			}
			return slices.Contains(opts.AllowedOrigins, origin)
		},
	}
}

// ServeWs upgrades the request and hands the connection to the hub.
func ServeWs(hub *signaling.Hub, upgrader websocket.Upgrader, log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			log.Warn("failed to upgrade connection", slog.String("remote", ctx.ClientIP()), logging.Err(err))
			return
		}

		client := signaling.NewClient(hub, conn)
		if !hub.Connect(client) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

func listRooms(hub *signaling.Hub) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		list := hub.Rooms().List()

		resp := protocol.RoomList{
			Rooms:     make([]protocol.RoomInfo, 0, len(list)),
			Connected: hub.Clients().Count(),
		}
		for _, room := range list {
			resp.Rooms = append(resp.Rooms, roomInfo(room))
		}

		ctx.JSON(http.StatusOK, resp)
	}
}

func getRoom(hub *signaling.Hub) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		room, ok := hub.Rooms().Snapshot(ctx.Param("roomID"))
		if !ok {
			ctx.JSON(http.StatusNotFound, gin.H{"error": signaling.ErrRoomNotFound.Error()})
			return
		}
		ctx.JSON(http.StatusOK, roomInfo(room))
	}
}

func roomInfo(room signaling.Room) protocol.RoomInfo {
	return protocol.RoomInfo{
		RoomID:       room.ID,
		Participants: room.Participants,
		Full:         room.Full(),
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		log.Debug("http request",
			slog.String("method", ctx.Request.Method),
			slog.String("path", ctx.Request.URL.Path),
			slog.Int("status", ctx.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
