package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abrezinsky/derbyrush/internal/browser"
	"github.com/abrezinsky/derbyrush/internal/config"
	"github.com/abrezinsky/derbyrush/internal/game"
	"github.com/abrezinsky/derbyrush/internal/handlers"
	"github.com/abrezinsky/derbyrush/internal/logger"
	"github.com/abrezinsky/derbyrush/internal/websocket"
	"github.com/abrezinsky/derbyrush/pkg/metrics"
	"github.com/abrezinsky/derbyrush/web"
)

// Compile-time check that the engine satisfies the hub's dispatcher surface.
var _ websocket.GameDispatcher = (*game.Engine)(nil)

// App holds all application dependencies
type App struct {
	log          logger.Logger
	cfg          *config.Config
	engine       *game.Engine
	hub          *websocket.Hub
	handlers     *handlers.Handlers
	cancelEngine context.CancelFunc
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg *config.Config) *App {
	mx := metrics.New(prometheus.DefaultRegisterer)

	hub := websocket.New(log, nil, mx)
	engine := game.New(log, hub, game.Options{
		FinishLine: cfg.FinishLine,
		Countdown:  cfg.Countdown(),
		Pot:        cfg.Pot,
		QueueSize:  cfg.QueueSize,
		Metrics:    mx,
	})
	hub.SetGame(engine)

	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)
	hub.Start()

	if cfg.HTTPLogging {
		log.EnableHTTPLogging()
	}

	h := handlers.New(log, hub, web.GetStaticFS())

	return &App{
		log:          log,
		cfg:          cfg,
		engine:       engine,
		hub:          hub,
		handlers:     h,
		cancelEngine: cancel,
	}
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Engine exposes the game engine, mainly for tests.
func (a *App) Engine() *game.Engine {
	return a.engine
}

// Close performs graceful shutdown of app resources
func (a *App) Close() {
	if a.cancelEngine != nil {
		a.cancelEngine()
	}
}

// Run starts the HTTP server
func (a *App) Run() error {
	ip := getPreferredIP(realNetworkProvider{})
	baseURL := fmt.Sprintf("http://%s%s", ip, a.cfg.Addr)

	a.log.Info("Server starting", "url", baseURL)
	a.log.Info("Host display", "url", baseURL)
	a.log.Info("Mobile controller", "url", baseURL+"/mobile")
	a.log.Info("Make sure phones are on the same network")

	if a.cfg.OpenBrowser {
		if err := browser.Open(baseURL); err != nil {
			a.log.Warn("Failed to open browser", "error", err)
		}
	}

	return http.ListenAndServe(a.cfg.Addr, a.Router())
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IP address for LAN access, so the QR code
// points phones somewhere reachable. Prefers private network addresses
// (192.168.x.x, 10.x.x.x, 172.16-31.x.x) and falls back to localhost.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP

	for _, iface := range ifaces {
		// Skip down, loopback, and point-to-point interfaces
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			// Only consider IPv4 addresses
			if ip == nil || ip.To4() == nil {
				continue
			}

			if ip.IsLoopback() {
				continue
			}

			candidates = append(candidates, ip)
		}
	}

	// Prefer private network addresses
	for _, ip := range candidates {
		ipStr := ip.String()
		if strings.HasPrefix(ipStr, "192.168.") ||
			strings.HasPrefix(ipStr, "10.") ||
			isPrivate172(ip) {
			return ipStr
		}
	}

	// Fall back to any non-loopback if no private address found
	if len(candidates) > 0 {
		return candidates[0].String()
	}

	return "localhost"
}

// isPrivate172 checks if IP is in 172.16.0.0/12 range
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
