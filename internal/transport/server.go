package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server hosts the websocket simulation protocol behind gin, the way
// the teacher's cmd/server wires a gin.Engine plus a dedicated
// metrics server around its core components.
type Server struct {
	router   *gin.Engine
	upgrader websocket.Upgrader
	cfg      SessionConfig
	log      logrus.FieldLogger
}

// NewServer builds a gin.Engine with health, websocket, and metrics
// routes registered.
func NewServer(cfg SessionConfig, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		router: gin.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		cfg: cfg,
		log: log,
	}

	s.router.Use(gin.Recovery(), PrometheusMiddleware())
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for use with an
// http.Server, mirroring the teacher's separation of route
// registration from process lifecycle.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/ws", s.serveWebsocket)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "market-making-engine",
	})
}

func (s *Server) serveWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	session := NewSession(conn, s.cfg, s.log)
	session.Run()
	conn.Close()
}
