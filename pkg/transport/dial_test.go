package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitScheme(t *testing.T) {
	cases := []struct {
		addr, scheme, host string
	}{
		{"127.0.0.1:9092", "tcp", "127.0.0.1:9092"},
		{"tcp://host:1", "tcp", "host:1"},
		{"TLS://host:2", "tls", "host:2"},
		{"quic://host:3", "quic", "host:3"},
	}
	for _, c := range cases {
		scheme, host := splitScheme(c.addr)
		if scheme != c.scheme || host != c.host {
			t.Errorf("splitScheme(%q) = %q, %q; want %q, %q", c.addr, scheme, host, c.scheme, c.host)
		}
	}
}

func TestDialRejectsUnknownScheme(t *testing.T) {
	if _, err := Dial(context.Background(), "udp://host:1", nil); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}

func TestTLSConfigBuildNil(t *testing.T) {
	var tc *TLSConfig
	cfg, err := tc.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(cfg.NextProtos) != 1 || cfg.NextProtos[0] != alpnProto {
		t.Fatalf("alpn = %v", cfg.NextProtos)
	}
}

func TestTLSConfigBuild(t *testing.T) {
	tc := &TLSConfig{ServerName: "coordinator", Insecure: true}
	cfg, err := tc.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.ServerName != "coordinator" || !cfg.InsecureSkipVerify {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestTLSConfigBuildBadRoots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := (&TLSConfig{RootCAFile: path}).Build(); err == nil {
		t.Fatalf("expected error for unparsable root certificates")
	}
	if _, err := (&TLSConfig{RootCAFile: path + ".missing"}).Build(); err == nil {
		t.Fatalf("expected error for missing root file")
	}
}
