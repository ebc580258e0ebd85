package economy

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/trading-academy/internal/http/middleware"
	"github.com/wolfman30/trading-academy/internal/http/respond"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// Handler exposes the member economy endpoints and the admin wallet tools.
// Member routes expect middleware.MemberJWT upstream.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) memberID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.MemberIDFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return id, ok
}

// GetWallet handles GET /me/wallet.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.memberID(w, r)
	if !ok {
		return
	}
	wallet, err := h.svc.Wallet(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, wallet)
}

// GetLedger handles GET /me/ledger?limit=.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.memberID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Ledger(r.Context(), userID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []*LedgerEntry{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ListStore handles GET /store. Admins pass ?all=true to see inactive items.
func (h *Handler) ListStore(w http.ResponseWriter, r *http.Request) {
	_, isAdmin := middleware.AdminClaimsFromContext(r.Context())
	all := isAdmin && r.URL.Query().Get("all") == "true"
	items, err := h.svc.StoreCatalogue(r.Context(), all)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []*StoreItem{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"items": items})
}

// ListInventory handles GET /me/inventory.
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.memberID(w, r)
	if !ok {
		return
	}
	items, err := h.svc.Inventory(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []*InventoryItem{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"items": items})
}

// Purchase handles POST /store/{itemID}/purchase.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.memberID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.PurchaseStoreItem(r.Context(), userID, chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// Equip handles POST /me/inventory/{id}/equip.
func (h *Handler) Equip(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.memberID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Equip(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateBooster handles POST /me/inventory/{id}/activate.
func (h *Handler) ActivateBooster(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.memberID(w, r)
	if !ok {
		return
	}
	until, err := h.svc.ActivateBooster(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"active_until": until})
}

type adjustRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

// AdjustWallet handles POST /admin/wallets/{userID}/adjust.
func (h *Handler) AdjustWallet(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID := chi.URLParam(r, "userID")
	wallet, err := h.svc.AdjustFocusCoins(r.Context(), userID, req.Delta, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
		h.logger.Info("admin wallet adjustment", "admin", claims.Email, "user_id", userID, "delta", req.Delta)
	}
	respond.JSON(w, http.StatusOK, wallet)
}

// AdminGetWallet handles GET /admin/wallets/{userID}.
func (h *Handler) AdminGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.svc.Wallet(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, wallet)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrInventoryNotFound):
		respond.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrInvalidAdjustment):
		respond.Error(w, http.StatusBadRequest, "delta must be non-zero and reason is required")
	case errors.Is(err, ErrInsufficientFunds):
		respond.Error(w, http.StatusConflict, "not enough focus coins")
	case errors.Is(err, ErrNegativeBalance):
		respond.Error(w, http.StatusConflict, "balance cannot go negative")
	case errors.Is(err, ErrItemInactive),
		errors.Is(err, ErrAlreadyOwned),
		errors.Is(err, ErrNotEquippable),
		errors.Is(err, ErrNotBooster),
		errors.Is(err, ErrNoneLeft),
		errors.Is(err, ErrBoosterActive):
		respond.Error(w, http.StatusConflict, conflictMessage(err))
	default:
		h.logger.Error("economy request failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}

var conflictMessages = map[error]string{
	ErrItemInactive:  "item is not for sale",
	ErrAlreadyOwned:  "item already owned",
	ErrNotEquippable: "item cannot be equipped",
	ErrNotBooster:    "item is not a booster",
	ErrNoneLeft:      "no booster left",
	ErrBoosterActive: "booster already active",
}

func conflictMessage(err error) string {
	for sentinel, msg := range conflictMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return "conflict"
}
