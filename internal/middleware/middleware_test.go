package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"echo-viewer/internal/metrics"
)

// captureLog redirects the standard logger for the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestNewResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 0 || rw.wroteHeader {
		t.Error("Expected fresh writer to have written nothing")
	}

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusNotFound || w.Code != http.StatusNotFound {
		t.Errorf("second WriteHeader overrode status: %d / %d", rw.statusCode, w.Code)
	}

	n, err := rw.Write([]byte("hello"))
	if err != nil || n != 5 || rw.bytesWritten != 5 {
		t.Errorf("Write = %d, %v; bytesWritten = %d", n, err, rw.bytesWritten)
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"line\nbreak", "line break"},
		{"cr\rlf", "cr lf"},
		{"nul\x00byte", "nulbyte"},
		{"\x1b[31mred", "[31mred"},
		{"tab\tok", "tab\tok"},
		{"bell\x07", "bell"},
	}
	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeW3CField(t *testing.T) {
	if got := escapeW3CField("curl/8.0"); got != "curl/8.0" {
		t.Errorf("got %q", got)
	}
	if got := escapeW3CField(`Mozilla/5.0 "x"`); got != `"Mozilla/5.0 ""x"""` {
		t.Errorf("got %q", got)
	}
}

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		config        LoggingConfig
		expectLogging bool
	}{
		{"logs API requests", "/api/images", DefaultLoggingConfig(), true},
		{"logs API images", "/api/image/trip/a.jpg", DefaultLoggingConfig(), true},
		{"skips static files", "/app.js", DefaultLoggingConfig(), false},
		{"logs static files when enabled", "/app.js", LoggingConfig{LogStaticFiles: true, SkipExtensions: []string{".js"}}, true},
		{"logs health checks when enabled", "/healthz", LoggingConfig{LogHealthChecks: true}, true},
		{"skips health checks when disabled", "/healthz", LoggingConfig{LogHealthChecks: false}, false},
		{"skips configured paths", "/metrics", LoggingConfig{SkipPaths: []string{"/metrics"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			handler := Logger(tt.config)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte("ok"))
			}))

			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}
			logged := strings.Contains(buf.String(), tt.path)
			if logged != tt.expectLogging {
				t.Errorf("logged = %v, want %v (log %q)", logged, tt.expectLogging, buf.String())
			}
		})
	}
}

func TestLoggerLineFields(t *testing.T) {
	buf := captureLog(t)
	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("12345"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/images?path=a%0Ab", http.NoBody)
	req.Header.Set("X-Gallery-Root", "photos\nINJECTED")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	for _, want := range []string{"10.0.0.1 GET /api/images", " 418 5 ", "image/jpeg"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
	if strings.Count(strings.TrimRight(line, "\n"), "\n") != 0 {
		t.Errorf("log line was split: %q", line)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "192.0.2.1:1234", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "192.0.2.1:1234", "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Metrics(DefaultMetricsConfig()))
	r.HandleFunc("/api/image/{path:.*}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {}).Methods("GET")

	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/image/{path:.*}", "404")
	before := testutil.ToFloat64(counter)

	for _, p := range []string{"/api/image/a.jpg", "/api/image/trip/b.jpg"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, http.NoBody))
	}
	if got := testutil.ToFloat64(counter); got != before+2 {
		t.Errorf("requests for template = %v, want %v", got, before+2)
	}

	health := metrics.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200")
	healthBefore := testutil.ToFloat64(health)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	if got := testutil.ToFloat64(health); got != healthBefore {
		t.Errorf("skipped path was recorded: %v -> %v", healthBefore, got)
	}
}

func TestRouteLabelUnmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody)
	if got := routeLabel(req); got != "unmatched" {
		t.Errorf("routeLabel = %q, want unmatched", got)
	}
}

func TestMetricsResponseWriterKeepsFirstStatus(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newMetricsResponseWriter(w)
	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusBadGateway)
	if rw.statusCode != http.StatusCreated {
		t.Errorf("statusCode = %d, want 201", rw.statusCode)
	}
}
