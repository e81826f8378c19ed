// Package api exposes homes, user profiles and the expense ledger over
// HTTP/JSON. Every route except /health and /metrics requires a verified
// bearer identity.
package api

import (
	"context"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/juju/errors"

	"github.com/billbatista/easychore/eventlogger"
	"github.com/billbatista/easychore/home"
	"github.com/billbatista/easychore/identity"
	"github.com/billbatista/easychore/ledger"
	"github.com/billbatista/easychore/middleware"
	"github.com/billbatista/easychore/user"
)

type UserStore interface {
	Ensure(ctx context.Context, id identity.Identity) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (*user.User, error)
}

type HomeStore interface {
	Create(ctx context.Context, h *home.Home) error
	GetByID(ctx context.Context, id string) (*home.Home, error)
	ListForMember(ctx context.Context, memberID string) ([]home.Home, error)
	AddMember(ctx context.Context, homeID string, m home.Member) error
	RemoveMember(ctx context.Context, homeID, memberID string) error
	Delete(ctx context.Context, homeID string) error
}

type Server struct {
	Ledger   *ledger.Ledger
	Homes    HomeStore
	Users    UserStore
	Events   ledger.EventSink
	Verifier identity.Verifier
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewRouter(s *Server) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", s.health)
	if s.Metrics != nil {
		router.Handle("/metrics", s.Metrics)
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(s.Verifier))

		r.Get("/users/profile", s.getProfile)
		r.Patch("/users/profile", s.updateProfile)

		r.Post("/homes", s.createHome)
		r.Get("/homes", s.listHomes)
		r.Post("/homes/join", s.joinHome)
		r.Get("/homes/{homeID}", s.getHome)
		r.Delete("/homes/{homeID}", s.deleteHome)
		r.Get("/homes/{homeID}/members", s.listMembers)
		r.Post("/homes/{homeID}/members", s.addMember)
		r.Delete("/homes/{homeID}/members/{memberID}", s.removeMember)

		r.Post("/expenses", s.createExpense)
		r.Get("/expenses/home/{homeID}", s.listExpenses)
		r.Get("/expenses/home/{homeID}/balances", s.balances)
		r.Get("/expenses/{expenseID}", s.getExpense)
		r.Delete("/expenses/{expenseID}", s.deleteExpense)
		r.Patch("/expenses/{expenseID}/mark-paid", s.markPaidByPayer)
		r.Patch("/expenses/{expenseID}/mark-paid-self", s.markPaidBySelf)
	})

	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.log(eventlogger.NewEvent(
		eventlogger.WithType("health_request"),
		eventlogger.WithData(map[string]string{
			"message":     "ok",
			"http_status": strconv.Itoa(http.StatusOK),
		}),
	))
	w.Write([]byte("ok"))
}

func (s *Server) log(evt eventlogger.Event) {
	if s.Events != nil {
		s.Events.Log(evt)
	}
}

// caller returns the verified identity placed in the context by
// middleware.Authenticate.
func caller(r *http.Request) (identity.Identity, error) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		return identity.Identity{}, errors.Unauthorizedf("no verified identity")
	}
	return id, nil
}
