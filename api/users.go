package api

import (
	"net/http"

	"github.com/juju/errors"

	"github.com/billbatista/easychore/user"
)

type updateProfileRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	PaymentRef *string `json:"paymentRef"`
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.Users.GetByID(r.Context(), id.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if u == nil {
		writeError(w, r, errors.NotFoundf("user"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.Users.UpdateProfile(r.Context(), id.ID, user.ProfileUpdate{
		Name:       req.Name,
		Email:      req.Email,
		PaymentRef: req.PaymentRef,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User profile updated successfully",
		"user":    u,
	})
}
