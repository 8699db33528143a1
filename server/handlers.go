package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type resetRequestBody struct {
	Username string `json:"username"`
}

type resetConfirmBody struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": s.config.GetAppName(),
			"env":     s.env,
		})
	}
}

// PreflightHandler answers OPTIONS requests that carry no Origin header.
// Cross-origin preflights are already answered by CorsMiddleware.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		result, err := s.auth.Login(r.Context(), req.Username, req.Password, clientIP(r))
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		user, err := s.auth.Register(r.Context(), req.Username, req.Password, clientIP(r))
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "refresh_token is required")
			return
		}

		result, err := s.auth.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !decodeBody(w, r, &req) {
			return
		}

		if err := s.auth.Logout(r.Context(), req.RefreshToken); err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "logged out"})
	}
}

// ResetRequestHandler always acknowledges, whether or not the account exists.
// The reset token itself is delivered out of band, never in the response.
func (s *Server) ResetRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetRequestBody
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Username == "" {
			writeError(w, http.StatusBadRequest, "username is required")
			return
		}

		if _, err := s.auth.ResetRequest(r.Context(), req.Username); err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "reset requested"})
	}
}

func (s *Server) ResetConfirmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetConfirmBody
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Token == "" || req.NewPassword == "" {
			writeError(w, http.StatusBadRequest, "token and new_password are required")
			return
		}

		if err := s.auth.ResetConfirm(r.Context(), req.Token, req.NewPassword); err != nil {
			// Unknown and expired tokens collapse to one client error so the
			// response reveals nothing about which tokens were ever issued.
			if apperrors.Is(err, apperrors.ErrNotFound) || apperrors.Is(err, apperrors.ErrTokenExpired) {
				writeError(w, http.StatusBadRequest, "invalid or expired reset token")
				return
			}
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "password reset"})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity == nil {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		writeJSON(w, http.StatusOK, identity)
	}
}

func (s *Server) ApproveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("user_id")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		approver := IdentityFromContext(r.Context())
		approvedBy := ""
		if approver != nil {
			approvedBy = approver.Username
		}

		if err := s.auth.Approve(r.Context(), userID, approvedBy); err != nil {
			s.writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "approved"})
	}
}

// writeAuthError maps domain errors onto HTTP status codes. Unrecognised
// errors are logged and hidden behind a generic 500.
func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrTooManyRequests):
		w.Header().Set("Retry-After", strconv.Itoa(int(s.config.GetLoginWindow().Seconds())))
		writeError(w, http.StatusTooManyRequests, "too many requests")
	case apperrors.Is(err, apperrors.ErrInvalidCredentials),
		apperrors.Is(err, apperrors.ErrInvalidToken),
		apperrors.Is(err, apperrors.ErrInvalidSignature),
		apperrors.Is(err, apperrors.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case apperrors.Is(err, apperrors.ErrAccountInactive):
		writeError(w, http.StatusForbidden, "account is not active")
	case apperrors.Is(err, apperrors.ErrUsernameExists):
		writeError(w, http.StatusConflict, "username already exists")
	case apperrors.Is(err, apperrors.ErrUserNotFound), apperrors.Is(err, apperrors.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // headers already sent
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
