package upgrade

import (
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDial(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		upgrade    string
		connection string
		acceptFor  string
		wantErr    bool
	}{
		{
			name:       "200_instead_of_101",
			status:     200,
			upgrade:    "websocket",
			connection: "Upgrade",
			wantErr:    true,
		},
		{
			name:       "no_upgrade_header",
			status:     101,
			connection: "Upgrade",
			wantErr:    true,
		},
		{
			name:    "no_connection_header",
			status:  101,
			upgrade: "websocket",
			wantErr: true,
		},
		{
			name:       "wrong_accept_value",
			status:     101,
			upgrade:    "websocket",
			connection: "Upgrade",
			acceptFor:  "bogus-nonce",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Upgrade", tt.upgrade)
				w.Header().Set("Connection", tt.connection)
				if tt.acceptFor != "" {
					w.Header().Set("Sec-WebSocket-Accept", expectedAcceptValue(tt.acceptFor))
				}
				w.WriteHeader(tt.status)
			}))
			defer s.Close()

			if _, err := Dial(t.Context(), s.URL, nil); (err != nil) != tt.wantErr {
				t.Errorf("Dial() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDialHappyPath(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Upgrade", "websocket")
		w.Header().Set("Connection", "Upgrade")
		w.Header().Set("Sec-WebSocket-Accept", expectedAcceptValue(r.Header.Get("Sec-WebSocket-Key")))
		w.WriteHeader(http.StatusSwitchingProtocols)
	}))
	defer s.Close()

	rwc, err := Dial(t.Context(), s.URL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	_ = rwc.Close()
}

func TestHandshakeRequest(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "ws_scheme",
			url:  "ws://example.com/socket",
			want: "http://example.com/socket",
		},
		{
			name: "wss_scheme",
			url:  "wss://example.com/socket",
			want: "https://example.com/socket",
		},
		{
			name: "http_scheme",
			url:  "http://example.com/socket",
			want: "http://example.com/socket",
		},
		{
			name:    "unexpected_scheme",
			url:     "ftp://example.com/socket",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := handshakeRequest(t.Context(), tt.url, "nonce", nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("handshakeRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := req.URL.String(); got != tt.want {
				t.Errorf("handshakeRequest() URL = %q, want %q", got, tt.want)
			}
			if got := req.Header.Get("Sec-WebSocket-Version"); got != "13" {
				t.Errorf("Sec-WebSocket-Version = %q, want %q", got, "13")
			}
		})
	}
}

func TestHandshakeRequestKeepsCallerHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer token")

	req, err := handshakeRequest(t.Context(), "ws://example.com", "nonce", h)
	if err != nil {
		t.Fatalf("handshakeRequest() error = %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer token" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer token")
	}
	if h.Get("Upgrade") != "" {
		t.Error("handshakeRequest() mutated the caller's headers")
	}
}

func TestGenerateNonce(t *testing.T) {
	n1, err := generateNonce(rand.Reader)
	if err != nil {
		t.Error(err)
	}
	n2, err := generateNonce(rand.Reader)
	if err != nil {
		t.Error(err)
	}
	if n1 == n2 {
		t.Errorf("generateNonce(rand.Reader) not random")
	}

	r := strings.NewReader("abcdefghijklmnopabcdefghijklmnop")
	n3, err := generateNonce(r)
	if err != nil {
		t.Error(err)
	}
	n4, err := generateNonce(r)
	if err != nil {
		t.Error(err)
	}
	if n3 != n4 {
		t.Errorf("generateNonce(r) = %q, want %q", n3, n4)
	}
}

// https://datatracker.ietf.org/doc/html/rfc6455#section-1.3
func TestExpectedAcceptValue(t *testing.T) {
	got := expectedAcceptValue("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Errorf("expectedAcceptValue() = %q, want %q", got, want)
	}
}
