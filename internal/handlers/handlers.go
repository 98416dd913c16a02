package handlers

import (
	"encoding/base64"
	"encoding/json"
	"io/fs"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/abrezinsky/derbyrush/internal/websocket"
)

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
	Error(msg string, args ...any)
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Log          HTTPLogger
	Hub          *websocket.Hub
	staticFS     fs.FS
	staticServer http.Handler
}

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// New creates a new Handlers instance with all dependencies
func New(log HTTPLogger, hub *websocket.Hub, staticFS fs.FS) *Handlers {
	return &Handlers{
		Log:          log,
		Hub:          hub,
		staticFS:     staticFS,
		staticServer: NewStaticServer(staticFS),
	}
}

// handleIndex serves the host display page
func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, "index.html")
}

// handleMobile serves the mobile controller page
func (h *Handlers) handleMobile(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, "mobile.html")
}

func (h *Handlers) servePage(w http.ResponseWriter, name string) {
	page, err := fs.ReadFile(h.staticFS, name)
	if err != nil {
		h.Log.Error("Failed to read embedded page", "page", name, "error", err)
		http.Error(w, "page not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// QRResponse is the response for the mobile join QR code
type QRResponse struct {
	QRCode    string `json:"qrCode"`
	MobileURL string `json:"mobileUrl"`
}

// handleQR returns the mobile controller URL both as a scannable PNG
// (base64 data URL) and as text, so the host display can show either.
func (h *Handlers) handleQR(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS != nil {
		scheme = "https"
	}
	mobileURL := scheme + "://" + r.Host + "/mobile"

	png, err := qrcode.Encode(mobileURL, qrcode.Medium, 300)
	if err != nil {
		h.Log.Error("Failed to generate QR code", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate QR code"})
		return
	}

	writeJSON(w, http.StatusOK, QRResponse{
		QRCode:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		MobileURL: mobileURL,
	})
}

// handleHealthz reports liveness
func (h *Handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
