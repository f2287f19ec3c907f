package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/lossyudp/internal/logs"
	"github.com/danmuck/lossyudp/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 3 * time.Second

// RouterConfig wires the HTTP surface to live state.
type RouterConfig struct {
	ID          string
	CORSOrigins []string
	State       StateFunc
	Hub         *Hub
}

// NewRouter builds the gin engine. ctx bounds websocket registration.
func NewRouter(ctx context.Context, cfg RouterConfig) *gin.Engine {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.ComponentLogger("dashboard"), "/metrics", "/snapshot", "/ws"))
	r.Use(observability.RequestMetricsMiddleware(cfg.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	started := time.Now()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"relay":  cfg.ID,
			"uptime": time.Since(started).String(),
		})
	})
	r.GET("/snapshot", func(c *gin.Context) {
		c.JSON(http.StatusOK, cfg.State())
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			cfg.Hub.ServeWS(ctx, c.Writer, c.Request)
		})
	}
	return r
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	return out
}

// Serve runs handler on ln until ctx is done. The caller binds ln so bind
// failures surface at startup.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logs.Infof("dashboard.Serve listening addr=%q", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
