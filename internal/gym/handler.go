// internal/gym/handler.go
package gym

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"gymnexus/internal/clients"
	"gymnexus/internal/gymerr"
	"gymnexus/internal/ledger"
	"gymnexus/internal/metrics"
	"gymnexus/internal/pricing"
	"gymnexus/internal/timezone"
)

// AdminPINHeader carries the PIN that authorizes price changes.
const AdminPINHeader = "X-Admin-PIN"

// MaxUploadBytes caps import and restore bodies.
const MaxUploadBytes = 8 << 20

type Handler struct {
	service   Service
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	logger    logrus.FieldLogger
	maxUpload int64
}

// NewHandler serves service over HTTP. Write requests share one token
// bucket of limit requests per second with the given burst.
func NewHandler(service Service, limit float64, burst int, m *metrics.Metrics, logger logrus.FieldLogger) *Handler {
	return &Handler{
		service:   service,
		limiter:   rate.NewLimiter(rate.Limit(limit), burst),
		metrics:   m,
		logger:    logger,
		maxUpload: MaxUploadBytes,
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.metrics.Instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.throttleWrites)

		r.Get("/gym", h.handleInfo)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.handleListClients)
			r.Post("/", h.handleRegisterClient)
			r.Get("/search", h.handleFindClient)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetClient)
				r.Patch("/", h.handleUpdateClient)
				r.Delete("/", h.handleDeleteClient)
				r.Post("/checkin", h.handleCheckIn)
				r.Get("/membership", h.handleMembershipStatus)
				r.Post("/membership", h.handleCreateMembership)
				r.Delete("/membership", h.handleRemoveMembership)
				r.Post("/membership/pay", h.handlePayMembership)
				r.Post("/membership/renew", h.handleRenewMembership)
			})
		})

		r.Get("/memberships/expiring", h.handleExpiring)
		r.Get("/memberships/due", h.handleDue)

		r.Route("/trainers", func(r chi.Router) {
			r.Get("/", h.handleListTrainers)
			r.Post("/", h.handleCreateTrainer)
			r.Patch("/{id}", h.handleUpdateTrainer)
			r.Delete("/{id}", h.handleDeleteTrainer)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.handleListSessions)
			r.Post("/", h.handleCreateSession)
			r.Get("/{id}", h.handleGetSession)
			r.Delete("/{id}", h.handleDeleteSession)
			r.Post("/{id}/enrollments", h.handleEnroll)
			r.Delete("/{id}/enrollments/{clientID}", h.handleCancelEnrollment)
		})

		r.Post("/cash/single-entry", h.handleSingleEntry)
		r.Post("/cash/deposit", h.handleDeposit)
		r.Get("/cash/balance", h.handleBalance)

		r.Get("/reports/monthly", h.handleMonthlyReport)
		r.Get("/reports/daily", h.handleDailyReport)
		r.Get("/reports/entries", h.handleEntryHistogram)

		r.Get("/prices", h.handlePrices)
		r.Put("/prices/{item}", h.handleUpdatePrice)

		r.Post("/import", h.handleImport)
		r.Get("/export", h.handleExport)
		r.Post("/restore", h.handleRestore)
	})
	return r
}

func (h *Handler) throttleWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if !h.limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Info(r.Context()))
}

// Clients

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		writeJSON(w, http.StatusOK, h.service.FindClientsByName(r.Context(), name))
		return
	}
	writeJSON(w, http.StatusOK, h.service.Clients(r.Context()))
}

func (h *Handler) handleRegisterClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		ExternalID string `json:"external_id"`
		Phone      string `json:"phone"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.service.RegisterClient(r.Context(), req.Name, req.ExternalID, req.Phone)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleFindClient(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	by := clients.Criterion(q.Get("by"))
	if by == "" {
		by = clients.ByExternalID
	}
	c, err := h.service.FindClient(r.Context(), by, q.Get("value"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.service.Client(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.service.UpdateClient(r.Context(), id, req.Name, req.Phone)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleDeleteClient requires ?confirm=true; without it nothing is
// deleted and the response says so.
func (h *Handler) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	del, err := h.service.DeleteClient(r.Context(), id, confirmed)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, del)
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeOptionalJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	rec, err := h.service.CheckIn(r.Context(), id, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Memberships

type membershipWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (m membershipWindow) dates() (start, end *time.Time, err error) {
	if start, err = optionalDate(m.Start); err != nil {
		return nil, nil, err
	}
	if end, err = optionalDate(m.End); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func (h *Handler) handleCreateMembership(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		membershipWindow
		Paid bool `json:"paid"`
	}
	if err := decodeOptionalJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	start, end, err := req.dates()
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.service.CreateMembership(r.Context(), id, MembershipRequest{Start: start, End: end, Paid: req.Paid})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleMembershipStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	st, err := h.service.MembershipStatus(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handleRemoveMembership(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.RemoveMembership(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePayMembership(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	paid, err := h.service.PayMembership(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paid": paid})
}

func (h *Handler) handleRenewMembership(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req membershipWindow
	if err := decodeOptionalJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	start, end, err := req.dates()
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.service.RenewMembership(r.Context(), id, start, end)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleExpiring(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ExpiringMemberships(r.Context()))
}

func (h *Handler) handleDue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.DueForRenewal(r.Context()))
}

// Trainers and sessions

func (h *Handler) handleListTrainers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Trainers(r.Context()))
}

func (h *Handler) handleCreateTrainer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Specialty string `json:"specialty"`
		Phone     string `json:"phone"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	t, err := h.service.CreateTrainer(r.Context(), req.Name, req.Specialty, req.Phone)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleUpdateTrainer(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		Specialty *string `json:"specialty"`
		Phone     *string `json:"phone"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	t, err := h.service.UpdateTrainer(r.Context(), id, req.Specialty, req.Phone)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleDeleteTrainer(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	del, err := h.service.DeleteTrainer(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, del)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Sessions(r.Context()))
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrainerID int    `json:"trainer_id"`
		Date      string `json:"date"`
		MaxSeats  int    `json:"max_seats"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	date, err := timezone.ParseDate(req.Date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.service.CreateSession(r.Context(), req.TrainerID, date, req.MaxSeats)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.service.Session(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	removed, err := h.service.DeleteSession(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		ClientID int `json:"client_id"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := h.service.Enroll(r.Context(), id, req.ClientID); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.service.Session(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleCancelEnrollment(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	clientID, err := pathInt(r, "clientID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := h.service.CancelEnrollment(r.Context(), id, clientID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cash and reports

func (h *Handler) handleSingleEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID *int   `json:"client_id"`
		Reason   string `json:"reason"`
	}
	if err := decodeOptionalJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	sale, err := h.service.SellSingleEntry(r.Context(), req.ClientID, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rec, err := h.service.Deposit(r.Context(), amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{"balance": h.service.Balance(r.Context())})
}

func (h *Handler) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rep, err := h.service.MonthlyReport(r.Context(), month, year)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	date, err := timezone.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	rep, err := h.service.DailyReport(r.Context(), date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleEntryHistogram takes first_weekday as 0 for Monday through 6 for
// Sunday. When omitted it is taken from the calendar.
func (h *Handler) handleEntryHistogram(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	first := (int(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Weekday()) + 6) % 7
	if v := r.URL.Query().Get("first_weekday"); v != "" {
		if first, err = strconv.Atoi(v); err != nil {
			h.writeError(w, fmt.Errorf("%w: first_weekday %q", gymerr.ErrInvalidFormat, v))
			return
		}
	}
	hist, err := h.service.EntryHistogram(r.Context(), month, year, first)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// Prices

func (h *Handler) handlePrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Prices(r.Context()))
}

func (h *Handler) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	item := pricing.Item(chi.URLParam(r, "item"))
	change, err := h.service.UpdatePrice(r.Context(), r.Header.Get(AdminPINHeader), item, amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// Bulk

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.service.ImportClients(r.Context(), bytes.NewReader(body))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*ImportResult
		Percent float64 `json:"percent"`
	}{res, res.Percent()})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = WriteSnapshot(w, h.service.Export(r.Context()))
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	body, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	snap, err := ReadSnapshot(bytes.NewReader(body))
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.service.Restore(r.Context(), snap)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Helpers

// StatusOf maps an error to its HTTP status by taxonomy kind.
func StatusOf(err error) int {
	switch gymerr.Kind(err) {
	case "InvalidFormat", "InvalidAmount", "InvalidSpecialty", "MalformedRecord":
		return http.StatusBadRequest
	case "NotFound":
		return http.StatusNotFound
	case "DuplicateClient", "AlreadyExists", "CapacityExceeded", "CapacityFull", "AlreadyEnrolled", "NotEnrolled":
		return http.StatusConflict
	case "Unauthorized":
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// readUpload buffers the whole body before the service lock is taken.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return body, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": err.Error(),
			"kind":  "TooLarge",
		})
		return
	}
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed")
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  gymerr.Kind(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	if err := decode(body, dst); err != nil {
		return fmt.Errorf("%w: request body: %v", gymerr.ErrInvalidFormat, err)
	}
	return nil
}

// decodeOptionalJSON accepts an empty body and leaves dst untouched.
func decodeOptionalJSON(body io.ReadCloser, dst interface{}) error {
	err := decode(body, dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: request body: %v", gymerr.ErrInvalidFormat, err)
}

func decode(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseAmount reads amounts sent as strings so grouped values such as
// "50.000" keep their meaning.
func parseAmount(s string) (int64, error) {
	n, err := ledger.ParseAmount(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", gymerr.ErrInvalidAmount, err)
	}
	return n, nil
}

func pathInt(r *http.Request, key string) (int, error) {
	v := chi.URLParam(r, key)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q must be a number", gymerr.ErrInvalidFormat, key, v)
	}
	return n, nil
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := timezone.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func monthQuery(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: month %q", gymerr.ErrInvalidFormat, q.Get("month"))
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: year %q", gymerr.ErrInvalidFormat, q.Get("year"))
	}
	return month, year, nil
}
