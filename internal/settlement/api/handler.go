package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-settlement/internal/auth"
	"ms-settlement/internal/event"
	"ms-settlement/internal/funds"
	"ms-settlement/internal/models"
	"ms-settlement/internal/platform"
	"ms-settlement/internal/points"
	"ms-settlement/internal/settlement"
)

type Handler struct {
	Settlement *settlement.Service
	Platform   *platform.Service
	Events     *event.Service
	Ledger     *points.Ledger
	Funds      *funds.DB
}

// RegisterRoutes mounts every settlement endpoint. All routes sit behind the
// JWT middleware; the token subject is the caller's wallet identity.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/platform", func(r chi.Router) {
		r.Post("/initialize", h.InitializePlatform)
		r.Put("/config", h.UpdatePlatformConfig)
		r.Post("/pause", h.TogglePause)
		r.Post("/transfer-authority", h.TransferAuthority)
	})

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Put("/{eventId}/status", h.UpdateEventStatus)
		r.Post("/{eventId}/ticket-types", h.CreateTicketType)
		r.Post("/{eventId}/ticket-types/{typeId}/mint", h.BatchMintTickets)
		r.Put("/{eventId}/operators/{operator}", h.SetCheckInOperator)
		r.Post("/{eventId}/ticket-types/{typeId}/purchase", h.Purchase)
	})

	r.Route("/tickets", func(r chi.Router) {
		r.Get("/{ticketId}", h.GetTicket)
		r.Get("/{ticketId}/pass", h.GetEntryPass)
		r.Post("/{ticketId}/list", h.ListTicket)
		r.Post("/{ticketId}/buy", h.BuyListed)
		r.Delete("/{ticketId}/listing", h.CancelListing)
		r.Post("/{ticketId}/checkin", h.CheckIn)
	})

	r.Get("/points/{wallet}", h.GetPoints)

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/{address}", h.GetAccount)
		r.Post("/{address}/deposit", h.FundAccount)
	})
}

// writeError maps the settlement error set onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidSignature),
		errors.Is(err, models.ErrAuthorizationExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrNotTicketOwner),
		errors.Is(err, models.ErrCheckInOperatorNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, sql.ErrNoRows):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrPlatformPaused),
		errors.Is(err, models.ErrNonceAlreadyUsed),
		errors.Is(err, models.ErrPriceMismatch),
		errors.Is(err, models.ErrAlreadyCheckedIn),
		errors.Is(err, models.ErrListingNotActive),
		errors.Is(err, models.ErrCannotResellTicket),
		errors.Is(err, models.ErrResaleLimitReached),
		errors.Is(err, models.ErrInsufficientSupply),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrEventNotActive),
		errors.Is(err, models.ErrSalesNotStarted),
		errors.Is(err, models.ErrSalesEnded),
		errors.Is(err, models.ErrInvalidCheckInTime):
		status = http.StatusConflict
	case errors.Is(err, models.ErrArithmeticOverflow),
		errors.Is(err, models.ErrInvalidTicketReference),
		errors.Is(err, models.ErrInvalidEventStatus):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ---------------- PLATFORM ----------------

func (h *Handler) InitializePlatform(w http.ResponseWriter, r *http.Request) {
	var params platform.InitParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Platform.Initialize(auth.Identity(r.Context()), params); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "initialized"})
}

func (h *Handler) UpdatePlatformConfig(w http.ResponseWriter, r *http.Request) {
	var params platform.UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	config, err := h.Platform.UpdateConfig(auth.Identity(r.Context()), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}

func (h *Handler) TogglePause(w http.ResponseWriter, r *http.Request) {
	paused, err := h.Platform.TogglePause(auth.Identity(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_paused": paused})
}

func (h *Handler) TransferAuthority(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewAuthority string `json:"new_authority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.NewAuthority == "" {
		http.Error(w, "new_authority cannot be empty", http.StatusBadRequest)
		return
	}

	if err := h.Platform.TransferAuthority(auth.Identity(r.Context()), req.NewAuthority); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"transferred"}`))
}

// ---------------- EVENTS ----------------

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var params event.CreateEventParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.Events.CreateEvent(auth.Identity(r.Context()), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateEventStatus(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	var req struct {
		Status uint8 `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Events.UpdateEventStatus(auth.Identity(r.Context()), eventID, req.Status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"updated"}`))
}

func (h *Handler) CreateTicketType(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	var params event.CreateTicketTypeParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.Events.CreateTicketType(auth.Identity(r.Context()), eventID, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) BatchMintTickets(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	typeID := chi.URLParam(r, "typeId")

	var req struct {
		Quantity uint32 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	total, err := h.Events.BatchMintTickets(auth.Identity(r.Context()), eventID, typeID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint32{"total_supply": total})
}

func (h *Handler) SetCheckInOperator(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	operator := chi.URLParam(r, "operator")

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Events.SetCheckInOperator(auth.Identity(r.Context()), eventID, operator, req.Active); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"updated"}`))
}

// ---------------- SETTLEMENT ----------------

// purchaseRequest carries the backend authorization alongside its signature.
type purchaseRequest struct {
	Authorization models.AuthorizationData `json:"authorization"`
	Signature     []byte                   `json:"signature"`
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	typeID := chi.URLParam(r, "typeId")

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ticket, err := h.Settlement.Purchase(auth.Identity(r.Context()), eventID, typeID, req.Authorization, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.Settlement.GetTicket(chi.URLParam(r, "ticketId"))
	if err != nil {
		http.Error(w, "Ticket not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(ticket)
}

func (h *Handler) GetEntryPass(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.Settlement.GetTicket(chi.URLParam(r, "ticketId"))
	if err != nil {
		http.Error(w, "Ticket not found", http.StatusNotFound)
		return
	}
	if ticket.Owner != auth.Identity(r.Context()) {
		writeError(w, models.ErrNotTicketOwner)
		return
	}
	if len(ticket.PassCode) == 0 {
		http.Error(w, "No entry pass for this ticket", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(ticket.PassCode)
}

func (h *Handler) ListTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	var req struct {
		Price int64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	listing, err := h.Settlement.List(auth.Identity(r.Context()), ticketID, req.Price)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (h *Handler) BuyListed(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ticket, err := h.Settlement.BuyListed(auth.Identity(r.Context()), ticketID, req.Authorization, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) CancelListing(w http.ResponseWriter, r *http.Request) {
	if err := h.Settlement.CancelListing(auth.Identity(r.Context()), chi.URLParam(r, "ticketId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"cancelled"}`))
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.Settlement.CheckIn(auth.Identity(r.Context()), chi.URLParam(r, "ticketId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// ---------------- POINTS / ACCOUNTS ----------------

func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	balance, err := h.Ledger.GetPoints(wallet)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"wallet": wallet, "points": balance})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.Funds.GetAccount(chi.URLParam(r, "address"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(account)
}

// FundAccount credits a balance. This is the on-ramp boundary: in production
// deposits arrive from the payments pipeline, locally it seeds test money.
func (h *Handler) FundAccount(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Funds.Deposit(address, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.Funds.GetAccount(address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}
