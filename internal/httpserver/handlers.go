package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	authdomain "authapi/backend/internal/domain/auth"
	authusecase "authapi/backend/internal/usecase/auth"
)

// Response messages returned to API clients.
const (
	msgUserIDTaken     = "User id already being used, use another user id!"
	msgUserNameTaken   = "User with this name already exist ! Choose another user_name."
	msgUserNotExist    = "User does not exist  or password is incorret! Try to signup."
	msgTokenExpired    = "Token has expired, please renew your credentials"
	msgTokenInvalid    = "Invalid token, access denied."
	msgRenewMismatch   = "The password offered doesn't matched with current password or user does not exist."
	msgPasswordReuse   = "Not allowed using previous password"
	msgRenewSuccessFmt = "User credentials for user id %d renewed !"
)

// AuthService is the credential lifecycle consumed by the handlers.
type AuthService interface {
	Signup(ctx context.Context, in authusecase.SignupInput) (*authdomain.Credential, error)
	Login(ctx context.Context, in authusecase.LoginInput) (authdomain.Outcome, error)
	Renew(ctx context.Context, in authusecase.RenewInput) (*authdomain.Credential, error)
}

var _ AuthService = (*authusecase.Service)(nil)

const apiPrefix = "/auth-api/v1"

func (s *Server) registerRoutes() {
	s.router.Handle("/health", http.HandlerFunc(s.handleHealth))
	s.router.Handle(apiPrefix+"/signup", http.HandlerFunc(s.handleSignup))
	s.router.Handle(apiPrefix+"/login", http.HandlerFunc(s.handleLogin))
	s.router.Handle(apiPrefix+"/renew-credentials", http.HandlerFunc(s.handleRenewCredentials))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload signupRequest
	if err := decodeBody(w, r, &payload); err != nil {
		writeStatus(w, http.StatusUnprocessableEntity, statusInvalidRequest, err.Error())
		return
	}
	if payload.UserID == nil {
		writeStatus(w, http.StatusUnprocessableEntity, statusInvalidRequest, "missing user_id")
		return
	}

	_, err := s.authService.Signup(r.Context(), authusecase.SignupInput{
		AppName:  payload.AppName,
		UserID:   int64(*payload.UserID),
		UserName: payload.UserName,
		Password: payload.Password,
		Role:     payload.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrUserIDTaken):
			writeStatus(w, http.StatusForbidden, statusFailed, msgUserIDTaken)
		case errors.Is(err, authdomain.ErrUserNameTaken):
			writeStatus(w, http.StatusForbidden, statusFailed, msgUserNameTaken)
		case errors.Is(err, authdomain.ErrInvalidInput):
			writeStatus(w, http.StatusUnprocessableEntity, statusInvalidRequest, err.Error())
		default:
			writeStatus(w, http.StatusInternalServerError, statusFailed, " sign up failed due to "+err.Error())
		}
		return
	}

	writeStatus(w, http.StatusOK, statusSuccess, "")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload loginRequest
	if err := decodeBody(w, r, &payload); err != nil {
		writeStatus(w, http.StatusUnprocessableEntity, statusInvalidRequest, err.Error())
		return
	}

	outcome, err := s.authService.Login(r.Context(), authusecase.LoginInput{
		AppName:  payload.AppName,
		UserName: payload.UserName,
		Password: payload.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrUserNotExist):
			writeStatus(w, http.StatusForbidden, statusUserNotExist, msgUserNotExist)
		case errors.Is(err, authdomain.ErrInvalidInput):
			writeStatus(w, http.StatusUnprocessableEntity, statusInvalidRequest, err.Error())
		default:
			writeStatus(w, http.StatusInternalServerError, statusAuthFailed, "login failed due to "+err.Error())
		}
		return
	}

	switch outcome {
	case authdomain.OutcomeValid:
		writeStatus(w, http.StatusOK, statusAuthSuccess, "")
	case authdomain.OutcomeExpired:
		writeStatus(w, http.StatusForbidden, statusAuthFailed, msgTokenExpired)
	default:
		writeStatus(w, http.StatusForbidden, statusAuthFailed, msgTokenInvalid)
	}
}

func (s *Server) handleRenewCredentials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload renewRequest
	if err := decodeBody(w, r, &payload); err != nil {
		writeStatus(w, http.StatusUnprocessableEntity, statusInvalidRequest, err.Error())
		return
	}

	cred, err := s.authService.Renew(r.Context(), authusecase.RenewInput{
		AppName:     payload.AppName,
		UserName:    payload.UserName,
		OldPassword: payload.OldPassword,
		NewPassword: payload.NewPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrCredentialMismatch):
			writeStatus(w, http.StatusForbidden, statusError, msgRenewMismatch)
		case errors.Is(err, authdomain.ErrPasswordReuse):
			writeStatus(w, http.StatusForbidden, statusError, msgPasswordReuse)
		case errors.Is(err, authdomain.ErrInvalidInput):
			writeStatus(w, http.StatusUnprocessableEntity, statusInvalidRequest, err.Error())
		default:
			writeStatus(w, http.StatusInternalServerError, statusError, "credentials renewal failed due to "+err.Error())
		}
		return
	}

	writeStatus(w, http.StatusOK, statusSuccess, fmt.Sprintf(msgRenewSuccessFmt, cred.UserID))
}
