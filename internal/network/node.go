package network

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	// alpnProtocol is the ALPN protocol identifier.
	alpnProtocol = "phaseking/1"

	// maxIdleTimeout closes a connection that has been silent this long.
	// Keep-alives hold connections open while participants wait at a barrier.
	maxIdleTimeout = 5 * time.Minute

	// keepAlivePeriod is the interval between QUIC keep-alive frames.
	keepAlivePeriod = 10 * time.Second
)

// Config holds the configuration for an Endpoint.
type Config struct {
	PrivateKey ed25519.PrivateKey // PrivateKey is the endpoint identity; generated when nil
	ListenAddr string             // ListenAddr is the UDP address to listen on (e.g., ":9000")
}

// Endpoint is a QUIC listener and dialer producing byte channels.
// Every Conn carries exactly one bidirectional stream.
type Endpoint struct {
	privateKey ed25519.PrivateKey // privateKey is the endpoint's ed25519 private key
	publicKey  ed25519.PublicKey  // publicKey is the endpoint's ed25519 public key
	listenAddr string             // listenAddr is the address to listen on
	tlsConfig  *tls.Config        // tlsConfig is the TLS configuration
	quicConfig *quic.Config       // quicConfig is the QUIC configuration

	listener *quic.Listener // listener is the QUIC listener, nil until Listen

	ctx    context.Context    // ctx is the endpoint's context
	cancel context.CancelFunc // cancel cancels the endpoint's context
}

// NewEndpoint creates an endpoint. Call Listen before Accept.
func NewEndpoint(cfg Config) (*Endpoint, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}

	privateKey := cfg.PrivateKey
	if privateKey == nil {
		var err error
		if privateKey, err = GenerateKey(); err != nil {
			return nil, err
		}
	}

	cert, err := generateCertificate(privateKey)
	if err != nil {
		return nil, fmt.Errorf("generate certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates:       []tls.Certificate{cert},
		ClientAuth:         tls.RequireAnyClientCert,
		InsecureSkipVerify: true, // identity comes from the coordinator, not from PKI
		NextProtos:         []string{alpnProtocol},
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  maxIdleTimeout,
		KeepAlivePeriod: keepAlivePeriod,
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Endpoint{
		privateKey: privateKey,
		publicKey:  privateKey.Public().(ed25519.PublicKey),
		listenAddr: cfg.ListenAddr,
		tlsConfig:  tlsConfig,
		quicConfig: quicConfig,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// PublicKey returns the endpoint's public key.
func (e *Endpoint) PublicKey() ed25519.PublicKey {
	return e.publicKey
}

// Listen opens the QUIC listener.
func (e *Endpoint) Listen() error {
	listener, err := quic.ListenAddr(e.listenAddr, e.tlsConfig, e.quicConfig)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	e.listener = listener

	return nil
}

// Addr returns the listener's address. Returns empty string if not listening.
func (e *Endpoint) Addr() string {
	if e.listener == nil {
		return ""
	}

	return e.listener.Addr().String()
}

// Accept waits for the next connection and its stream.
// The stream becomes visible once the dialer has written its first byte.
func (e *Endpoint) Accept(ctx context.Context) (*Conn, error) {
	if e.listener == nil {
		return nil, fmt.Errorf("endpoint is not listening")
	}

	conn, err := e.listener.Accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(1, "no stream")
		return nil, fmt.Errorf("accept stream: %w", err)
	}

	return newConn(conn, stream)
}

// Dial connects to addr and opens the connection's stream.
// The caller must write first so the remote Accept can see the stream.
func (e *Endpoint) Dial(ctx context.Context, addr string) (*Conn, error) {
	conn, err := quic.DialAddr(ctx, addr, e.tlsConfig, e.quicConfig)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(1, "open stream failed")
		return nil, fmt.Errorf("open stream: %w", err)
	}

	return newConn(conn, stream)
}

// Close stops listening. Conns already handed out stay open until closed by their owner.
func (e *Endpoint) Close() error {
	e.cancel()

	if e.listener != nil {
		return e.listener.Close()
	}

	return nil
}
