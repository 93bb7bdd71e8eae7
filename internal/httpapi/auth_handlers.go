package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"todochat/internal/apperr"
	"todochat/internal/auth"
	"todochat/internal/store"
)

type registerRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		writeError(w, apperr.Validation("invalid email address"))
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, apperr.Validation("%s", err.Error()))
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Email, hash, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, apperr.Validation("email already registered"))
			return
		}
		s.logger.Error("register failed", "error", err)
		writeError(w, apperr.Internal("create user: %v", err))
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		// Unknown email and wrong password are indistinguishable.
		writeError(w, apperr.Unauthorized("invalid email or password"))
		return
	}
	if err := auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, apperr.Unauthorized("invalid email or password"))
		return
	}

	token, expiresIn, err := s.tokens.Generate(strconv.FormatInt(user.ID, 10), user.Email)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeError(w, apperr.Internal("generate token: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
	})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}
	user, err := s.store.ResolveUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, apperr.Unauthorized("user no longer exists"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// requireSubject enforces that the token subject matches the path user id.
// Returns the user id, or false after writing a 403.
func (s *Server) requireSubject(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.PathValue("user_id")
	claims := claimsFrom(r.Context())
	if claims == nil {
		writeError(w, apperr.Unauthorized("authentication required"))
		return "", false
	}
	if claims.UserID != userID {
		writeForbidden(w)
		return "", false
	}
	return userID, true
}

// numericUserID parses the path user id for store calls.
func numericUserID(userID string) (int64, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return 0, apperr.Validation("user_id must be numeric")
	}
	return id, nil
}
