package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"contactform/internal/adapters/http/middleware"
	"contactform/internal/adapters/http/perf"
	"contactform/internal/application/orchestrators"
)

// Route paths.
const (
	ContactPath      = "/api/contact"
	ContactAliasPath = "/api/ContactForm"
	HealthPath       = "/healthz"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps holds everything the HTTP layer needs. It is built once in main.
type Deps struct {
	Enquiry        orchestrators.SubmitEnquiryDeps
	Health         HealthChecker
	Collector      *perf.Collector
	AllowedOrigins []string
	RateLimit      int // requests per minute per client
	TrustProxy     bool
	SlowRequest    time.Duration
}

// Validate reports wiring mistakes that would make the handler unusable.
func (d Deps) Validate() error {
	var errs []error
	if d.Enquiry.Verifier == nil {
		errs = append(errs, errors.New("verifier is not configured"))
	}
	if d.Enquiry.Directory == nil {
		errs = append(errs, errors.New("recipient directory is not configured"))
	}
	if d.Enquiry.Sender == nil {
		errs = append(errs, errors.New("email sender is not configured"))
	}
	if d.Enquiry.From == "" {
		errs = append(errs, errors.New("sender address is not configured"))
	}
	return errors.Join(errs...)
}

// server carries the handler dependencies; there is no package-level state.
type server struct {
	deps     Deps
	wiredErr error
}

// NewMux wires HTTP handlers and middleware.
// PRE: ctx lives as long as the server; it stops background cleanup
// POST: Returns the root handler
func NewMux(ctx context.Context, deps Deps) http.Handler {
	s := &server{deps: deps, wiredErr: deps.Validate()}

	mux := http.NewServeMux()
	mux.HandleFunc(ContactPath, s.handleContact)
	mux.HandleFunc(ContactAliasPath, s.handleContact)
	mux.HandleFunc(HealthPath, s.handleHealth)

	rate := deps.RateLimit
	if rate <= 0 {
		rate = 10
	}
	limiter := middleware.NewRateLimiter(rate, time.Minute, deps.TrustProxy)
	limiter.StartCleanup(ctx)

	// Request order: Timing -> Recover -> SecurityHeaders -> CORS -> RateLimit -> mux
	return middleware.Chain(mux,
		middleware.RateLimit(limiter),
		middleware.CORS(deps.AllowedOrigins),
		middleware.SecurityHeaders,
		middleware.Recover,
		middleware.Timing(deps.Collector, deps.SlowRequest),
	)
}
