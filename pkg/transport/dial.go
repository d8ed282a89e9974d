package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	quicgo "github.com/quic-go/quic-go"
)

const alpnProto = "flwr"

// TLSConfig carries the optional certificate material from session
// configuration. The zero value means plain TCP for tcp:// addresses and
// system roots for tls:// and quic:// ones.
type TLSConfig struct {
	RootCAFile string
	ServerName string
	Insecure   bool
}

// Build constructs a *tls.Config from the configured material.
func (t *TLSConfig) Build() (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS13,
		NextProtos: []string{alpnProto},
	}
	if t == nil {
		return cfg, nil
	}
	cfg.ServerName = t.ServerName
	cfg.InsecureSkipVerify = t.Insecure
	if t.RootCAFile != "" {
		pem, err := os.ReadFile(t.RootCAFile)
		if err != nil {
			return nil, fmt.Errorf("read root ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates parsed from %s", t.RootCAFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// Dial opens the underlying byte stream for addr. Supported schemes: tcp://
// (default when the scheme is omitted), tls:// and quic://.
func Dial(ctx context.Context, addr string, tc *TLSConfig) (io.ReadWriteCloser, error) {
	scheme, host := splitScheme(addr)
	switch scheme {
	case "tcp":
		d := &net.Dialer{}
		return d.DialContext(ctx, "tcp", host)
	case "tls":
		cfg, err := tc.Build()
		if err != nil {
			return nil, err
		}
		d := &tls.Dialer{Config: cfg}
		return d.DialContext(ctx, "tcp", host)
	case "quic":
		cfg, err := tc.Build()
		if err != nil {
			return nil, err
		}
		return dialQUIC(ctx, host, cfg)
	default:
		return nil, fmt.Errorf("unsupported scheme %q in address %q", scheme, addr)
	}
}

func splitScheme(addr string) (scheme, host string) {
	if s, h, ok := strings.Cut(addr, "://"); ok {
		return strings.ToLower(s), h
	}
	return "tcp", addr
}

// quicStream binds one bidirectional stream to the lifetime of its
// connection: closing the stream closes the session.
type quicStream struct {
	conn quicgo.Connection
	quicgo.Stream
}

func dialQUIC(ctx context.Context, host string, cfg *tls.Config) (io.ReadWriteCloser, error) {
	c, err := quicgo.DialAddr(ctx, host, cfg, &quicgo.Config{})
	if err != nil {
		return nil, err
	}
	st, err := c.OpenStreamSync(ctx)
	if err != nil {
		_ = c.CloseWithError(0, "open stream failed")
		return nil, err
	}
	return &quicStream{conn: c, Stream: st}, nil
}

func (s *quicStream) Close() error {
	err := s.Stream.Close()
	_ = s.conn.CloseWithError(0, "closed")
	return err
}
