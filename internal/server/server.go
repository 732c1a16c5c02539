package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

const (
	modeOff    = "off"
	modeAuto   = "auto"
	modeManual = "manual"

	// DefaultChallengeAddr is where ACME HTTP-01 challenges are answered.
	DefaultChallengeAddr = ":80"
)

// TLSOptions selects how the listener terminates TLS. Devices fetch the
// version document over HTTPS, so production runs in auto or manual mode.
type TLSOptions struct {
	Mode     string // off, auto, manual
	CertFile string // manual
	KeyFile  string // manual
	Domain   string // auto
	Email    string // auto
	CacheDir string // auto
	// ChallengeAddr is the plain HTTP listener for ACME challenges in auto
	// mode. Other requests there are redirected to HTTPS.
	ChallengeAddr string
}

// Server serves the router, optionally alongside an ACME challenge listener.
type Server struct {
	httpServer      *http.Server
	addr            string
	mode            string
	tlsOpts         TLSOptions
	certManager     *autocert.Manager
	challengeServer *http.Server
}

func New(host string, port int, handler http.Handler, tlsOpts TLSOptions) *Server {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	s := &Server{
		addr:       addr,
		mode:       tlsOpts.Mode,
		tlsOpts:    tlsOpts,
		httpServer: newHTTPServer(addr, handler, 15*time.Second),
	}
	if s.mode == "" {
		s.mode = modeOff
	}

	if s.mode == modeAuto {
		s.certManager = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(tlsOpts.Domain),
			Cache:      autocert.DirCache(tlsOpts.CacheDir),
			Email:      tlsOpts.Email,
		}
		s.httpServer.TLSConfig = &tls.Config{
			GetCertificate: s.certManager.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}

		challengeAddr := tlsOpts.ChallengeAddr
		if challengeAddr == "" {
			challengeAddr = DefaultChallengeAddr
		}
		s.challengeServer = newHTTPServer(challengeAddr, s.certManager.HTTPHandler(nil), 10*time.Second)
	}

	return s
}

func newHTTPServer(addr string, handler http.Handler, rwTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       rwTimeout,
		WriteTimeout:      rwTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

// Start blocks until the server stops. After Shutdown it returns
// http.ErrServerClosed.
func (s *Server) Start() error {
	switch s.mode {
	case modeAuto:
		go s.serveChallenges()
		slog.Info("listening", "addr", s.addr, "tls", s.mode, "domain", s.tlsOpts.Domain)
		return s.httpServer.ListenAndServeTLS("", "")
	case modeManual:
		slog.Info("listening", "addr", s.addr, "tls", s.mode)
		return s.httpServer.ListenAndServeTLS(s.tlsOpts.CertFile, s.tlsOpts.KeyFile)
	default:
		slog.Info("listening", "addr", s.addr, "tls", s.mode)
		return s.httpServer.ListenAndServe()
	}
}

func (s *Server) serveChallenges() {
	slog.Info("listening for acme challenges", "addr", s.challengeServer.Addr)
	if err := s.challengeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("acme challenge listener failed", "addr", s.challengeServer.Addr, "error", err)
	}
}

// Shutdown stops both listeners and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server")
	var challengeErr error
	if s.challengeServer != nil {
		challengeErr = s.challengeServer.Shutdown(ctx)
	}
	return errors.Join(s.httpServer.Shutdown(ctx), challengeErr)
}

func (s *Server) Addr() string {
	return s.addr
}

// TLSMode reports the effective mode; an empty mode reads as off.
func (s *Server) TLSMode() string {
	return s.mode
}
