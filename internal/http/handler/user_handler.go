package handler

import (
	"net/http"

	"github.com/vetmatch/identity/internal/http/middleware"
	"github.com/vetmatch/identity/internal/http/response"
	"github.com/vetmatch/identity/internal/service"
)

type UserHandler struct {
	userSvc service.UserServiceInterface
}

func NewUserHandler(userSvc service.UserServiceInterface) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Me returns the signed-in user with the profile display name and the
// effective role, which resolves legacy student rows.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid subject", nil)
		return
	}
	view, err := h.userSvc.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}
