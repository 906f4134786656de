package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/reportload/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	nets, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.5 ", "", "::1"})
	require.NoError(t, err)
	require.Len(t, nets, 3)
	require.Equal(t, "192.168.1.5/32", nets[1].String())

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	require.ErrorContains(t, err, `invalid trusted proxy "not-an-ip"`)
}

func TestTrustedRealIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"trusted real ip", "10.1.2.3:5000", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"trusted forwarded for", "10.1.2.3:5000", map[string]string{"X-Forwarded-For": "203.0.113.8, 10.1.2.3"}, "203.0.113.8"},
		{"untrusted keeps address", "198.51.100.1:5000", map[string]string{"X-Real-IP": "203.0.113.7"}, "198.51.100.1:5000"},
		{"trusted without header", "10.1.2.3:5000", nil, "10.1.2.3:5000"},
		{"garbage header ignored", "10.1.2.3:5000", map[string]string{"X-Real-IP": "nope"}, "10.1.2.3:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	var buf bytes.Buffer
	logging.Setup("info", "text", &buf)

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/risk_report", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	out := buf.String()
	require.Contains(t, out, "status=201")
	require.Contains(t, out, "bytes=5")
	require.Contains(t, out, "path=/api/ingest/risk_report")
	require.Contains(t, out, "level=INFO")
}
