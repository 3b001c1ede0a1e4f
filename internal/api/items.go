package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/qrstock/internal/codegen"
	"github.com/erazemk/qrstock/internal/config"
	"github.com/erazemk/qrstock/internal/db"
	"github.com/erazemk/qrstock/internal/model"
	"github.com/erazemk/qrstock/internal/store"
)

// TimeLayout formats item timestamps in JSON responses.
const TimeLayout = "2006-01-02 15:04:05 MST"

// ItemsHandler handles item CRUD endpoints.
type ItemsHandler struct {
	DB     *db.DB
	Config *config.Config
}

type itemRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Quantity    *int   `json:"quantity"`
	Status      string `json:"status"`
}

// input validates the request and converts it into store input.
func (req itemRequest) input() (model.ItemInput, string) {
	in := model.ItemInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Quantity:    model.DefaultQuantity,
		Status:      req.Status,
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return in, "quantity must not be negative"
		}
		in.Quantity = *req.Quantity
	}
	in.Normalize()
	if in.Name == "" {
		return in, "name required"
	}
	return in, ""
}

// itemView is the JSON representation of an item.
type itemView struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Location    string  `json:"location"`
	Quantity    int     `json:"quantity"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	CreatedBy   *string `json:"created_by"`
}

func newItemView(item *model.Item, loc *time.Location) itemView {
	if loc == nil {
		loc = time.UTC
	}
	v := itemView{
		ID:          item.ID,
		Code:        item.Code,
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category,
		Location:    item.Location,
		Quantity:    item.Quantity,
		Status:      item.Status,
		CreatedAt:   item.CreatedAt.In(loc).Format(TimeLayout),
		UpdatedAt:   item.UpdatedAt.In(loc).Format(TimeLayout),
	}
	if item.CreatedBy != "" {
		createdBy := item.CreatedBy
		v.CreatedBy = &createdBy
	}
	return v
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := store.ListItems(r.Context(), h.DB, model.ItemFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
	})
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	views := make([]itemView, 0, len(items))
	for i := range items {
		views = append(views, newItemView(&items[i], h.Config.Location))
	}
	jsonResponse(w, http.StatusOK, views)
}

// Get handles GET /api/item/{code}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItemByCode(r.Context(), h.DB, r.PathValue("code"))
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	jsonResponse(w, http.StatusOK, newItemView(item, h.Config.Location))
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, problem := req.input()
	if problem != "" {
		jsonError(w, http.StatusBadRequest, problem)
		return
	}

	var createdBy *int64
	if claims := GetClaims(r.Context()); claims != nil {
		createdBy = &claims.UserID
	}

	item, err := store.CreateItem(r.Context(), h.DB, in, createdBy)
	if err != nil {
		writeStoreError(w, err, "failed to create item")
		return
	}

	slog.Info("item created", "code", item.Code, "name", item.Name)
	jsonResponse(w, http.StatusCreated, newItemView(item, h.Config.Location))
}

// Update handles PUT /api/item/{code}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, problem := req.input()
	if problem != "" {
		jsonError(w, http.StatusBadRequest, problem)
		return
	}

	item, err := store.UpdateItem(r.Context(), h.DB, r.PathValue("code"), in)
	if err != nil {
		writeStoreError(w, err, "failed to update item")
		return
	}

	slog.Info("item updated", "code", item.Code)
	jsonResponse(w, http.StatusOK, newItemView(item, h.Config.Location))
}

// Delete handles DELETE /api/item/{code}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := codegen.Normalize(r.PathValue("code"))
	if err := store.DeleteItem(r.Context(), h.DB, code); err != nil {
		writeStoreError(w, err, "failed to delete item")
		return
	}

	slog.Info("item deleted", "code", code)
	jsonResponse(w, http.StatusOK, map[string]any{"success": true, "message": "item deleted"})
}

// writeStoreError maps store errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrDuplicateCode):
		jsonError(w, http.StatusConflict, "item code already exists")
	case errors.Is(err, codegen.ErrInvalidCode):
		jsonError(w, http.StatusBadRequest, "item code must be 1-20 letters or digits")
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
	default:
		slog.Error(fallback, "error", err)
		jsonError(w, http.StatusInternalServerError, fallback)
	}
}
