package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/juju/errors"

	"github.com/billbatista/easychore/eventlogger"
	"github.com/billbatista/easychore/home"
)

type createHomeRequest struct {
	Name       string `json:"name"`
	AccessCode string `json:"accessCode"`
}

type joinHomeRequest struct {
	HomeID     string `json:"homeId"`
	AccessCode string `json:"accessCode"`
}

func (s *Server) createHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createHomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.Users.Ensure(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h, err := home.NewHome(req.Name, home.Member{Identity: u.ID, Name: u.Name, PaymentRef: u.PaymentRef}, req.AccessCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Homes.Create(ctx, h); err != nil {
		writeError(w, r, errors.Annotate(err, "creating home"))
		return
	}

	s.log(eventlogger.NewEvent(
		eventlogger.WithType("home.created"),
		eventlogger.WithActor(id.ID),
		eventlogger.WithHome(h.ID),
		eventlogger.WithData(map[string]string{"name": h.Name}),
	))

	writeJSON(w, http.StatusCreated, map[string]any{"home": h, "homeId": h.ID})
}

func (s *Server) joinHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req joinHomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	code := home.NormalizeCode(req.HomeID)
	if code == "" {
		writeError(w, r, errors.NotValidf("empty home id"))
		return
	}

	h, err := s.Homes.GetByID(ctx, code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h == nil {
		writeError(w, r, errors.NotFoundf("home %q", code))
		return
	}

	if h.IsMember(id.ID) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "You are already a member of this home",
			"home":    h,
			"homeId":  h.ID,
		})
		return
	}

	if !h.CheckAccessCode(req.AccessCode) {
		writeError(w, r, errors.Forbiddenf("joining home %q with a wrong access code", h.ID))
		return
	}

	u, err := s.Users.Ensure(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Homes.AddMember(ctx, h.ID, home.Member{Identity: u.ID, Name: u.Name, PaymentRef: u.PaymentRef}); err != nil {
		writeError(w, r, errors.Annotate(err, "joining home"))
		return
	}

	h, err = s.Homes.GetByID(ctx, h.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.log(eventlogger.NewEvent(
		eventlogger.WithType("home.joined"),
		eventlogger.WithActor(id.ID),
		eventlogger.WithHome(h.ID),
	))

	writeJSON(w, http.StatusOK, map[string]any{"home": h, "homeId": h.ID})
}

func (s *Server) listHomes(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	homes, err := s.Homes.ListForMember(r.Context(), id.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"homes": homes})
}

func (s *Server) getHome(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h, err := s.loadHome(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !h.IsMember(id.ID) {
		writeError(w, r, errors.Forbiddenf("viewing home %q as a non-member", h.ID))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"home": h})
}

type memberView struct {
	home.Member
	IsCreator bool `json:"isCreator"`
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h, err := s.loadHome(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !h.IsMember(id.ID) {
		writeError(w, r, errors.Forbiddenf("listing members of home %q as a non-member", h.ID))
		return
	}

	members := make([]memberView, 0, len(h.Members))
	for _, m := range h.Members {
		members = append(members, memberView{Member: m, IsCreator: h.IsCreator(m.Identity)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

type addMemberRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, r, errors.NotValidf("empty member email"))
		return
	}

	h, err := s.loadHome(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !h.IsCreator(id.ID) {
		writeError(w, r, errors.Forbiddenf("adding members by anyone but the home creator"))
		return
	}

	target, err := s.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if target == nil {
		writeError(w, r, errors.NotFoundf("user with email %q", req.Email))
		return
	}
	if err := h.CheckAddition(id.ID, target.ID); err != nil {
		writeError(w, r, err)
		return
	}

	member := home.Member{Identity: target.ID, Name: target.Name, PaymentRef: target.PaymentRef}
	if name := strings.TrimSpace(req.Name); name != "" {
		member.Name = name
	}
	if err := s.Homes.AddMember(ctx, h.ID, member); err != nil {
		writeError(w, r, errors.Annotate(err, "adding member"))
		return
	}

	s.log(eventlogger.NewEvent(
		eventlogger.WithType("home.member_added"),
		eventlogger.WithActor(id.ID),
		eventlogger.WithHome(h.ID),
		eventlogger.WithData(map[string]string{"member": target.ID}),
	))

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Member added successfully",
		"member":  member,
	})
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h, err := s.loadHome(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	memberID := chi.URLParam(r, "memberID")
	if err := h.CheckRemoval(id.ID, memberID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Homes.RemoveMember(r.Context(), h.ID, memberID); err != nil {
		writeError(w, r, err)
		return
	}

	s.log(eventlogger.NewEvent(
		eventlogger.WithType("home.member_removed"),
		eventlogger.WithActor(id.ID),
		eventlogger.WithHome(h.ID),
		eventlogger.WithData(map[string]string{"member": memberID}),
	))

	writeMessage(w, http.StatusOK, "Member removed successfully")
}

func (s *Server) deleteHome(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h, err := s.loadHome(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !h.IsCreator(id.ID) {
		writeError(w, r, errors.Forbiddenf("deleting home %q by anyone but its creator", h.ID))
		return
	}

	if err := s.Homes.Delete(r.Context(), h.ID); err != nil {
		writeError(w, r, err)
		return
	}

	s.log(eventlogger.NewEvent(
		eventlogger.WithType("home.deleted"),
		eventlogger.WithActor(id.ID),
		eventlogger.WithHome(h.ID),
	))

	writeMessage(w, http.StatusOK, "Home deleted successfully")
}

// loadHome resolves the {homeID} route parameter.
func (s *Server) loadHome(r *http.Request) (*home.Home, error) {
	homeID := home.NormalizeCode(chi.URLParam(r, "homeID"))
	h, err := s.Homes.GetByID(r.Context(), homeID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, errors.NotFoundf("home %q", homeID)
	}
	return h, nil
}
