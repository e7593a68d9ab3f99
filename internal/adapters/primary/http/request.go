package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/lorrc/community-hub/internal/adapters/primary/http/middleware"
	"github.com/lorrc/community-hub/internal/adapters/primary/validation"
	"github.com/lorrc/community-hub/internal/core/domain"
)

// requirePrincipal extracts the authenticated principal, writing 401 when absent
func requirePrincipal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return domain.Principal{}, false
	}
	return principal, true
}

// communityIDParam extracts and validates the community ID from the URL
func communityIDParam(r *http.Request) (string, error) {
	communityID := chi.URLParam(r, "communityID")
	if err := domain.ValidateCommunityID(communityID); err != nil {
		return "", err
	}
	return communityID, nil
}

// int64Param extracts a positive integer ID from the URL
func int64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		v := validation.NewValidator()
		v.Custom(name, false, "Invalid "+name)
		return 0, v.Errors()
	}
	return id, nil
}

// uuidParam extracts a UUID from the URL
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		v := validation.NewValidator()
		v.Custom(name, false, "Must be a valid UUID")
		return uuid.Nil, v.Errors()
	}
	return id, nil
}

// UserDTO is the public shape of an account
type UserDTO struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func toUserDTO(user *domain.User) UserDTO {
	return UserDTO{
		ID:        user.ID.String(),
		FullName:  user.FullName,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}
