package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/rl1809/game-stock/internal/core/domain"
	"github.com/rl1809/game-stock/internal/core/service"
	"github.com/rl1809/game-stock/internal/logging"
)

const adminTokenHeader = "X-Admin-Token"

// Services bundles what both transports call into.
type Services struct {
	Sessions   *service.Sessions
	Catalog    *service.CatalogService
	Basket     *service.BasketService
	Purchases  *service.PurchaseService
	AdminToken string
}

// admit checks that a privileged session is only opened with the admin token.
func (s Services) admit(privileged bool, token string) error {
	if !privileged {
		return nil
	}
	if s.AdminToken == "" || subtle.ConstantTimeCompare([]byte(s.AdminToken), []byte(token)) != 1 {
		return errUnauthorized
	}
	return nil
}

type HTTPHandler struct {
	svc    Services
	logger *slog.Logger
}

type OpenSessionHTTPRequest struct {
	UserID     int64 `json:"user_id"`
	Privileged bool  `json:"privileged"`
}

type AddToBasketHTTPRequest struct {
	GameID   int64 `json:"game_id"`
	Quantity int   `json:"quantity"`
}

type GameHTTPRequest struct {
	Name     *string          `json:"name"`
	GenreID  *int64           `json:"genre_id"`
	RatingID *int64           `json:"rating_id"`
	Price    *decimal.Decimal `json:"price"`
	Copies   *int             `json:"copies"`
}

type GenreHTTPRequest struct {
	Label string `json:"label"`
}

type ErrorHTTPResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(svc Services, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("POST /api/sessions", h.OpenSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.CloseSession)
	mux.HandleFunc("GET /api/sessions/{id}/catalog", h.LoadCatalog)

	mux.HandleFunc("GET /api/sessions/{id}/basket", h.GetBasket)
	mux.HandleFunc("POST /api/sessions/{id}/basket", h.AddToBasket)
	mux.HandleFunc("DELETE /api/sessions/{id}/basket/{game_id}", h.RemoveFromBasket)

	mux.HandleFunc("POST /api/sessions/{id}/purchases", h.CommitPurchase)
	mux.HandleFunc("GET /api/sessions/{id}/purchases", h.ListPurchases)
	mux.HandleFunc("GET /api/sessions/{id}/purchases/{purchase_id}", h.PurchaseDetails)

	mux.HandleFunc("POST /api/sessions/{id}/games", h.AddGame)
	mux.HandleFunc("PATCH /api/sessions/{id}/games/{game_id}", h.UpdateGame)
	mux.HandleFunc("DELETE /api/sessions/{id}/games/{game_id}", h.DeleteGame)

	mux.HandleFunc("GET /api/genres", h.ListGenres)
	mux.HandleFunc("GET /api/ratings", h.ListRatings)
	mux.HandleFunc("POST /api/sessions/{id}/genres", h.AddGenre)
	mux.HandleFunc("PATCH /api/sessions/{id}/genres/{genre_id}", h.RenameGenre)
	mux.HandleFunc("DELETE /api/sessions/{id}/genres/{genre_id}", h.DeleteGenre)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		h.writeError(w, r, badRequest("user_id must be positive"))
		return
	}
	if err := h.svc.admit(req.Privileged, r.Header.Get(adminTokenHeader)); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess := h.svc.Sessions.Open(req.UserID, req.Privileged)
	logging.Info(logging.FromContext(r.Context(), h.logger), "session opened",
		logging.FieldSessionID, sess.ID,
		logging.FieldUserID, sess.UserID,
	)
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"privileged": sess.Privileged,
	})
}

func (h *HTTPHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Sessions.Close(r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) LoadCatalog(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if raw, set := r.URL.Query()["genre_id"]; set {
		genreID := int64(0)
		if len(raw) > 0 && raw[0] != "" {
			id, err := strconv.ParseInt(raw[0], 10, 64)
			if err != nil || id < 0 {
				h.writeError(w, r, badRequest("genre_id must be a non-negative integer"))
				return
			}
			genreID = id
		}
		sess.SetGenreFilter(genreID)
	}

	games, err := h.svc.Catalog.LoadCatalog(r.Context(), sess)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"genre_id": sess.GenreFilter(),
		"games":    toGameDTOs(games),
	})
}

func (h *HTTPHandler) GetBasket(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toBasketResponse(sess.Basket()))
}

func (h *HTTPHandler) AddToBasket(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AddToBasketHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Basket.AddToBasket(sess, req.GameID, req.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBasketResponse(sess.Basket()))
}

func (h *HTTPHandler) RemoveFromBasket(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	gameID, ok := h.pathID(w, r, "game_id")
	if !ok {
		return
	}

	if err := h.svc.Basket.RemoveFromBasket(sess, gameID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBasketResponse(sess.Basket()))
}

// CommitPurchase uses a client supplied X-Request-ID as the idempotency key.
func (h *HTTPHandler) CommitPurchase(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	requestID := ""
	if r.Header.Get("X-Request-ID") != "" {
		requestID = RequestIDFromContext(r.Context())
	}

	receipt, err := h.svc.Purchases.CommitPurchase(r.Context(), sess, requestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if receipt.PurchaseID == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, toReceiptResponse(receipt))
}

func (h *HTTPHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	withItems := r.URL.Query().Get("items") == "true"
	history, err := h.svc.Purchases.ListPurchases(r.Context(), sess, withItems)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponse(history))
}

func (h *HTTPHandler) PurchaseDetails(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	purchaseID, ok := h.pathID(w, r, "purchase_id")
	if !ok {
		return
	}

	p, err := h.svc.Purchases.PurchaseDetails(r.Context(), sess, purchaseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurchaseDTO(p))
}

func (h *HTTPHandler) AddGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req GameHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Name == nil || req.Price == nil {
		h.writeError(w, r, badRequest("name and price are required"))
		return
	}

	game := service.NewGame{Name: *req.Name, Price: *req.Price}
	if req.GenreID != nil {
		game.GenreID = *req.GenreID
	}
	if req.RatingID != nil {
		game.RatingID = *req.RatingID
	}
	if req.Copies != nil {
		game.Copies = *req.Copies
	}

	id, err := h.svc.Catalog.AddGame(r.Context(), sess, game)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *HTTPHandler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	gameID, ok := h.pathID(w, r, "game_id")
	if !ok {
		return
	}

	var req GameHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	update := domain.GameUpdate{
		Name:     req.Name,
		GenreID:  req.GenreID,
		RatingID: req.RatingID,
		Price:    req.Price,
		Copies:   req.Copies,
	}
	if err := h.svc.Catalog.UpdateGame(r.Context(), sess, gameID, update); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	gameID, ok := h.pathID(w, r, "game_id")
	if !ok {
		return
	}

	if err := h.svc.Catalog.DeleteGame(r.Context(), sess, gameID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.svc.Catalog.ListGenres(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]LabelDTO, 0, len(genres))
	for _, g := range genres {
		out = append(out, LabelDTO{ID: g.ID, Label: g.Label})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) ListRatings(w http.ResponseWriter, r *http.Request) {
	ratings, err := h.svc.Catalog.ListRatings(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]LabelDTO, 0, len(ratings))
	for _, rt := range ratings {
		out = append(out, LabelDTO{ID: rt.ID, Label: rt.Label})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) AddGenre(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req GenreHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.svc.Catalog.AddGenre(r.Context(), sess, req.Label)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, LabelDTO{ID: id, Label: req.Label})
}

func (h *HTTPHandler) RenameGenre(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	genreID, ok := h.pathID(w, r, "genre_id")
	if !ok {
		return
	}

	var req GenreHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Catalog.RenameGenre(r.Context(), sess, genreID, req.Label); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) DeleteGenre(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	genreID, ok := h.pathID(w, r, "genre_id")
	if !ok {
		return
	}

	if err := h.svc.Catalog.DeleteGenre(r.Context(), sess, genreID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	sess, err := h.svc.Sessions.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (h *HTTPHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, badRequest(fmt.Sprintf("%s must be a positive integer", name)))
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, badRequest("invalid request body"))
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	c := classify(err)
	if c.status >= http.StatusInternalServerError {
		logging.Error(logging.FromContext(r.Context(), h.logger), "request failed", err)
	}
	writeJSON(w, c.status, ErrorHTTPResponse{Error: c.message(err)})
}

func badRequest(msg string) error {
	return &domain.ValidationError{Op: "decode request", Err: errors.New(msg)}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
