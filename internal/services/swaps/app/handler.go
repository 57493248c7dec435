package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/timeouts"
	"github.com/louisbranch/skillswap/internal/services/swaps/domain"
	"github.com/louisbranch/skillswap/internal/services/swaps/identity"
	"github.com/louisbranch/skillswap/internal/services/swaps/notify"
	"github.com/louisbranch/skillswap/internal/services/swaps/realtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/skillswap/internal/services/swaps/app"

// maxRequestBodyBytes caps JSON request bodies.
const maxRequestBodyBytes = 64 << 10

// accessTokenCookieName carries the access token for browser clients.
const accessTokenCookieName = "access_token"

type handlerDeps struct {
	workflow   *domain.Workflow
	ratings    *domain.RatingGate
	sessions   *realtime.Registry
	dispatcher *notify.Dispatcher
	verifier   *identity.Verifier

	// done closes open WebSocket sessions when the server stops.
	done <-chan struct{}
}

type handler struct {
	handlerDeps
	tracer trace.Tracer
}

// authedFunc serves one authenticated API call. A returned error is rendered
// as the JSON error body.
type authedFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request, caller identity.Identity) error

func newHandler(deps handlerDeps) http.Handler {
	h := &handler{handlerDeps: deps, tracer: otel.Tracer(tracerName)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("POST /api/swaps", h.authed("swaps.create", h.createSwap))
	mux.Handle("GET /api/swaps/my", h.authed("swaps.my", h.mySwaps))
	mux.Handle("PUT /api/swaps/{swap_id}", h.authed("swaps.transition", h.transitionSwap))
	mux.Handle("DELETE /api/swaps/{swap_id}", h.authed("swaps.delete", h.deleteSwap))
	mux.Handle("POST /api/ratings", h.authed("ratings.submit", h.submitRating))
	mux.Handle("GET /api/ratings/user/{user_id}", h.authed("ratings.list", h.userRatings))
	mux.Handle("POST /api/admin/announcements", h.authed("admin.announce", h.announce))
	mux.HandleFunc("GET /ws/{user_id}", h.serveWS)
	return mux
}

// authed resolves the caller, opens a span and bounds the store work of fn.
func (h *handler) authed(name string, fn authedFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), name)
		defer span.End()
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreRequest)
		defer cancel()

		caller, err := h.verifier.Resolve(ctx, apiAccessToken(r))
		if err == nil {
			span.SetAttributes(attribute.String("user.id", caller.UserID))
			err = fn(ctx, w, r, caller)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperrors.GetCode(err)))
			writeError(w, r, err)
		}
	})
}

type createSwapRequest struct {
	ResponderID    string `json:"responder_id"`
	OfferedSkillID string `json:"offered_skill_id"`
	WantedSkillID  string `json:"wanted_skill_id"`
	Message        string `json:"message"`
}

func (h *handler) createSwap(ctx context.Context, w http.ResponseWriter, r *http.Request, caller identity.Identity) error {
	var req createSwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	swap, err := h.workflow.Create(ctx, caller.UserID, domain.CreateInput{
		ResponderID:    req.ResponderID,
		OfferedSkillID: req.OfferedSkillID,
		WantedSkillID:  req.WantedSkillID,
		Message:        req.Message,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, swap)
	return nil
}

func (h *handler) mySwaps(ctx context.Context, w http.ResponseWriter, _ *http.Request, caller identity.Identity) error {
	entries, err := h.workflow.MyEntries(ctx, caller.UserID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, entries)
	return nil
}

type transitionSwapRequest struct {
	Status string `json:"status"`
}

func (h *handler) transitionSwap(ctx context.Context, w http.ResponseWriter, r *http.Request, caller identity.Identity) error {
	var req transitionSwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	// Unknown statuses are passed through so the workflow reports them after
	// its existence and participant checks.
	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		status = domain.Status(strings.TrimSpace(req.Status))
	}
	swap, err := h.workflow.Transition(ctx, caller.UserID, r.PathValue("swap_id"), status)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, swap)
	return nil
}

func (h *handler) deleteSwap(ctx context.Context, w http.ResponseWriter, r *http.Request, caller identity.Identity) error {
	if err := h.workflow.Delete(ctx, caller.UserID, r.PathValue("swap_id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type submitRatingRequest struct {
	SwapID  string `json:"swap_id"`
	RatedID string `json:"rated_id"`
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

func (h *handler) submitRating(ctx context.Context, w http.ResponseWriter, r *http.Request, caller identity.Identity) error {
	var req submitRatingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	rating, err := h.ratings.Submit(ctx, caller.UserID, domain.SubmitInput{
		SwapID:  req.SwapID,
		RatedID: req.RatedID,
		Stars:   req.Stars,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, rating)
	return nil
}

type ratingsResponse struct {
	Ratings []domain.RatingView `json:"ratings"`
}

func (h *handler) userRatings(ctx context.Context, w http.ResponseWriter, r *http.Request, _ identity.Identity) error {
	ratings, err := h.ratings.RatingsFor(ctx, r.PathValue("user_id"))
	if err != nil {
		return err
	}
	if ratings == nil {
		ratings = []domain.RatingView{}
	}
	writeJSON(w, http.StatusOK, ratingsResponse{Ratings: ratings})
	return nil
}

type announceRequest struct {
	Message string `json:"message"`
}

func (h *handler) announce(_ context.Context, w http.ResponseWriter, r *http.Request, caller identity.Identity) error {
	if !caller.IsAdmin {
		return apperrors.New(apperrors.CodeAdminRequired, "admin access required")
	}
	var req announceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := h.dispatcher.Announce(req.Message); err != nil {
		return err
	}
	w.WriteHeader(http.StatusAccepted)
	return nil
}

// apiAccessToken reads the bearer header, then the access token cookie.
func apiAccessToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	return cookieToken(r)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func cookieToken(r *http.Request) string {
	cookie, err := r.Cookie(accessTokenCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.New(apperrors.CodeInvalidArgument, "request body is required")
		}
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid request body", err)
	}
	return nil
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError renders a domain error with its mapped status. Errors without a
// domain code are logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code.Kind() == apperrors.CodeUnknown {
		log.Printf("swaps: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
			Code:    string(apperrors.CodeUnknown),
			Message: "internal error",
		}})
		return
	}
	writeJSON(w, domainErr.Code.HTTPStatus(), errorBody{Error: errorDetail{
		Code:    string(domainErr.Code),
		Message: domainErr.Message,
	}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("swaps: encode response: %v", err)
	}
}
