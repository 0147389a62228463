package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"innkeeper/internal/app"
	"innkeeper/internal/domain"
)

type Handlers struct {
	Pricing  *app.PricingService
	Bookings *app.BookingService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/rooms/{id}/quote", h.quoteRoom)
	s.mux.Get("/v1/groups/{id}/quote", h.quoteGroup)
	s.mux.Post("/v1/groups/{id}/rooms", h.addRoom)
	s.mux.Patch("/v1/bookings/{id}/room", h.moveRoom)
	s.mux.Patch("/v1/bookings/{id}/guests", h.updateGuests)
	s.mux.Put("/v1/bookings/{id}/fees", h.updateFees)
	s.mux.Delete("/v1/bookings/{id}/group", h.removeFromGroup)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the core's error taxonomy onto HTTP. Invariant violations
// and unknown failures surface as a generic 500; detail stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		log.Error().Err(err).Msg("booking operation failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "internal error, please contact support")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// parseFeeRefs reads "building:1,room_type:3" style selection sets.
func parseFeeRefs(s string) ([]domain.FeeRef, error) {
	if s == "" {
		return nil, nil
	}
	var refs []domain.FeeRef
	for _, part := range strings.Split(s, ",") {
		scope, idStr, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, errors.New("fee ref must look like scope:id")
		}
		if scope != string(domain.ScopeBuilding) && scope != string(domain.ScopeRoomType) {
			return nil, errors.New("fee scope must be building or room_type")
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("fee id must be a positive number")
		}
		refs = append(refs, domain.FeeRef{Scope: domain.FeeScope(scope), ID: id})
	}
	return refs, nil
}

func (h *Handlers) quoteRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	q := r.URL.Query()
	checkIn, err := parseDate(q.Get("check_in"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid check_in", "use YYYY-MM-DD")
		return
	}
	checkOut, err := parseDate(q.Get("check_out"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid check_out", "use YYYY-MM-DD")
		return
	}
	guests := 1
	if gs := q.Get("guests"); gs != "" {
		if guests, err = strconv.Atoi(gs); err != nil || guests <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid guests", "guests must be a positive integer")
			return
		}
	}
	fees, err := parseFeeRefs(q.Get("fees"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid fees", err.Error())
		return
	}

	quote, err := h.Pricing.QuoteRoom(r.Context(), id, checkIn, checkOut, guests, fees)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, quote)
}

func (h *Handlers) quoteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	quote, err := h.Pricing.QuoteGroup(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, quote)
}

type addRoomRequest struct {
	RoomID int64           `json:"room_id"`
	Guests int             `json:"guests"`
	Fees   []domain.FeeRef `json:"fees"`
}

type totalsResponse struct {
	BookingID  int64  `json:"booking_id,omitempty"`
	RoomTotal  any    `json:"room_total"`
	GroupTotal any    `json:"group_total"`
}

func totalsBody(bookingID int64, t app.Totals) totalsResponse {
	resp := totalsResponse{BookingID: bookingID}
	resp.RoomTotal = t.RoomTotal
	resp.GroupTotal = t.GroupTotal
	return resp
}

func (h *Handlers) addRoom(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var req addRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	bookingID, totals, err := h.Bookings.AddRoomToGroup(r.Context(), groupID, req.RoomID, req.Guests, req.Fees)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, totalsBody(bookingID, totals))
}

func (h *Handlers) moveRoom(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var req struct {
		RoomID int64 `json:"room_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	totals, err := h.Bookings.MoveBookingRoom(r.Context(), bookingID, req.RoomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsBody(0, totals))
}

func (h *Handlers) updateGuests(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var req struct {
		Guests int `json:"guests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	totals, err := h.Bookings.UpdateBookingGuests(r.Context(), bookingID, req.Guests)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsBody(0, totals))
}

func (h *Handlers) updateFees(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var req struct {
		Fees []domain.FeeRef `json:"fees"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	totals, err := h.Bookings.UpdateBookingFees(r.Context(), bookingID, req.Fees)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsBody(0, totals))
}

func (h *Handlers) removeFromGroup(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	totals, err := h.Bookings.RemoveBookingFromGroup(r.Context(), bookingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsBody(0, totals))
}
