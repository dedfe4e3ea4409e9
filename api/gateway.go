package api

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"

	"CruceMaterialSap/internal/config"
	"CruceMaterialSap/internal/logger"
	"CruceMaterialSap/pkg/loadbalancer"
)

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}

// cruceBackends reads CRUCE_BACKENDS (comma-separated base URLs) and falls
// back to the single local cruce service.
func cruceBackends() []string {
	raw := os.Getenv("CRUCE_BACKENDS")
	if raw == "" {
		return []string{fmt.Sprintf("http://localhost:%d", config.CrucePort)}
	}
	var servers []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			servers = append(servers, trimmed)
		}
	}
	if len(servers) == 0 {
		return []string{fmt.Sprintf("http://localhost:%d", config.CrucePort)}
	}
	return servers
}

// createReverseProxy returns a reverse proxy handler that picks a backend
// per request. Every request and its upstream status land in the audit log.
func createReverseProxy(lb *loadbalancer.LoadBalancer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		logger.GlobalLogger.LogAudit(fmt.Sprintf("[Gateway] Incoming request: %s %s from %s (%d bytes)", r.Method, r.URL.Path, clientIP, r.ContentLength))

		target := lb.GetNextServer()
		if target == "" {
			http.Error(w, "No backend configured", http.StatusBadGateway)
			return
		}
		url, err := url.Parse(target)
		if err != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("[Gateway][ERROR] Proxy error: bad target URL %s for %s", target, r.URL.Path))
			http.Error(w, "Bad target URL", http.StatusInternalServerError)
			return
		}
		proxy := httputil.NewSingleHostReverseProxy(url)

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}
		proxy.ServeHTTP(rw, r)
		var msg string
		if rw.statusCode >= 400 {
			msg = fmt.Sprintf("[Gateway][ERROR] Proxied to %s for %s, status %d, error: %s", target, r.URL.Path, rw.statusCode, rw.body.String())
		} else {
			msg = fmt.Sprintf("[Gateway] Proxied to %s for %s, status %d", target, r.URL.Path, rw.statusCode)
		}
		logger.GlobalLogger.LogAudit(msg)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code. Only
// error bodies are captured (capped), so workbook exports stream through
// without being buffered.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode >= 400 && rw.body.Len() < 2048 {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

// StartGateway starts the API gateway server
func StartGateway() {
	mux := http.NewServeMux()

	mux.HandleFunc("/cruce/", createReverseProxy(loadbalancer.NewLoadBalancer(cruceBackends())))

	mux.HandleFunc("/healt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("API Gateway is healthy"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		logger.GlobalLogger.LogAudit("[Gateway] [Error] " + r.URL.Path + " from " + r.RemoteAddr + " (route not found)")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("404 - Route not found"))
	})

	log.Printf("API Gateway started on :%d", config.GatewayPort)
	err := http.ListenAndServe(fmt.Sprintf(":%d", config.GatewayPort), mux)
	if err != nil {
		log.Fatalf("Gateway server failed: %v", err)
	}
}
