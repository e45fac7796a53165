package fetch

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("direct client has timeout", func(t *testing.T) {
		t.Parallel()

		c, err := NewHTTPClient(5*time.Second, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Timeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", c.Timeout)
		}
	})

	t.Run("direct client reaches server", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok") //nolint:errcheck // test server
		}))
		t.Cleanup(srv.Close)

		c, err := NewHTTPClient(5*time.Second, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp, err := c.Get(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("proxy client", func(t *testing.T) {
		t.Parallel()

		c, err := NewHTTPClient(time.Second, "127.0.0.1:9050")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tr, ok := c.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("expected *http.Transport, got %T", c.Transport)
		}
		if tr.DialContext == nil {
			t.Error("expected a SOCKS5 dialer")
		}
	})

	t.Run("invalid proxy address", func(t *testing.T) {
		t.Parallel()

		if _, err := NewHTTPClient(time.Second, "no-port"); !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})
}

func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:9050", true},
		{"localhost:1080", true},
		{"[::1]:9050", true},
		{"127.0.0.1", false},
		{":9050", false},
		{"127.0.0.1:0", false},
		{"127.0.0.1:70000", false},
		{"127.0.0.1:abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tt.addr); got != tt.want {
				t.Errorf("isValidProxyAddress(%q) = %v, expected %v", tt.addr, got, tt.want)
			}
		})
	}
}

// fakeProxy accepts one connection and answers the method negotiation with reply.
func fakeProxy(t *testing.T, reply []byte) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 3)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		_, _ = conn.Write(reply) //nolint:errcheck // test proxy
	}()

	return ln.Addr().String()
}

func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("socks5 proxy", func(t *testing.T) {
		t.Parallel()

		addr := fakeProxy(t, []byte{0x05, 0x00})
		if err := CheckProxy(context.Background(), addr); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("proxy requiring auth", func(t *testing.T) {
		t.Parallel()

		addr := fakeProxy(t, []byte{0x05, 0xFF})
		if err := CheckProxy(context.Background(), addr); !errors.Is(err, ErrProxyNotSOCKS5) {
			t.Errorf("expected ErrProxyNotSOCKS5, got %v", err)
		}
	})

	t.Run("http server", func(t *testing.T) {
		t.Parallel()

		addr := fakeProxy(t, []byte("HTTP/1.1 400 Bad Request\r\n"))
		if err := CheckProxy(context.Background(), addr); !errors.Is(err, ErrProxyNotSOCKS5) {
			t.Errorf("expected ErrProxyNotSOCKS5, got %v", err)
		}
	})

	t.Run("nothing listening", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		if err := CheckProxy(context.Background(), addr); !errors.Is(err, ErrProxyCannotConnect) {
			t.Errorf("expected ErrProxyCannotConnect, got %v", err)
		}
	})

	t.Run("invalid address", func(t *testing.T) {
		t.Parallel()

		if err := CheckProxy(context.Background(), "bogus"); !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})
}
