package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/calebmaitland/gatehouse/internal/auth"
	"github.com/calebmaitland/gatehouse/internal/handlers"
	"github.com/calebmaitland/gatehouse/internal/routes"
	"github.com/calebmaitland/gatehouse/internal/services"
	pkgauth "github.com/calebmaitland/gatehouse/pkg/auth"
	pkghttp "github.com/calebmaitland/gatehouse/pkg/http"
	pkglogger "github.com/calebmaitland/gatehouse/pkg/logger"
)

// SentEmail is a captured outbound message
type SentEmail struct {
	To    string
	Token string
	Kind  string // "verification" or "reset"
}

// CapturingEmailService records emails instead of sending them. Sends
// happen on background goroutines, so reads go through WaitForEmail.
type CapturingEmailService struct {
	mu     sync.Mutex
	emails []SentEmail
}

func (m *CapturingEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.record(SentEmail{To: email, Token: token, Kind: "verification"})
	return nil
}

func (m *CapturingEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.record(SentEmail{To: email, Token: token, Kind: "reset"})
	return nil
}

func (m *CapturingEmailService) record(e SentEmail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, e)
}

func (m *CapturingEmailService) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.emails)
}

// WaitForEmail blocks until at least n emails have been captured and
// returns the most recent one, or nil on timeout.
func (m *CapturingEmailService) WaitForEmail(n int) *SentEmail {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.count() >= n {
			m.mu.Lock()
			e := m.emails[len(m.emails)-1]
			m.mu.Unlock()
			return &e
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

// TestServer wires the full service and handler stack over a real database
type TestServer struct {
	Router chi.Router
	Email  *CapturingEmailService
	ip     string
}

// clientIPCounter hands each TestServer its own source IP so the per-IP
// rate limit never couples independent tests.
var clientIPCounter atomic.Int64

// NewTestServer builds the API over the given database
func NewTestServer(db *TestDB) *TestServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditLogger := pkglogger.NewAuditLogger(logger)

	tokenManager := auth.NewTokenManager(
		"test-access-secret-0123456789abcdef",
		"test-refresh-secret-0123456789abcdef",
		15*time.Minute,
		7*24*time.Hour,
		"gatehouse",
	)

	totpManager, err := auth.NewTOTPManager(bytes.Repeat([]byte{0x42}, 32), "gatehouse")
	if err != nil {
		panic(err)
	}

	hasher := pkgauth.NewPasswordHasher(4)
	email := &CapturingEmailService{}

	authService := services.NewAuthService(db.Repo, tokenManager, hasher, totpManager, email, logger, auditLogger, 24*time.Hour)
	passwordService := services.NewPasswordService(db.Repo, hasher, email, logger, auditLogger, time.Hour, 10*time.Minute)
	verificationService := services.NewVerificationService(db.Repo, email, logger, auditLogger, 24*time.Hour, 10*time.Minute)
	accountService := services.NewAccountService(db.Repo, logger)
	mfaService := services.NewMFAService(db.Repo, totpManager, hasher, logger, auditLogger)

	ipConfig := &pkghttp.IPConfig{}
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)

	routes.RegisterRoutes(router,
		handlers.NewAuthHandler(authService, ipConfig),
		handlers.NewPasswordHandler(passwordService),
		handlers.NewVerificationHandler(verificationService),
		handlers.NewAccountHandler(accountService),
		handlers.NewMFAHandler(mfaService),
		tokenManager,
	)

	return &TestServer{
		Router: router,
		Email:  email,
		ip:     fmt.Sprintf("10.9.%d.1:55000", clientIPCounter.Add(1)),
	}
}

// Post sends a JSON POST through the router
func (s *TestServer) Post(path string, body any, accessToken string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}

	req := httptest.NewRequest("POST", path, &buf)
	req.RemoteAddr = s.ip
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

// Get sends a GET through the router
func (s *TestServer) Get(path string, accessToken string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	req.RemoteAddr = s.ip
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

// DecodeAuthResponse unmarshals a token-issuing response body
func DecodeAuthResponse(w *httptest.ResponseRecorder) (*services.AuthResponse, error) {
	var resp services.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
