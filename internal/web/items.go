package web

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/erazemk/qrstock/internal/codegen"
	"github.com/erazemk/qrstock/internal/model"
	"github.com/erazemk/qrstock/internal/render"
	"github.com/erazemk/qrstock/internal/store"
)

// IndexPage handles GET /.
func (s *Server) IndexPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ItemFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
	}

	items, err := store.ListItems(r.Context(), s.DB, filter)
	if err != nil {
		slog.Error("failed to list items", "error", err)
	}
	categories, err := store.ListCategories(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list categories", "error", err)
	}
	statuses, err := store.ListStatuses(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list statuses", "error", err)
	}

	s.Templates.Render(w, "index.html", &struct {
		PageData
		Items      []model.Item
		Filter     model.ItemFilter
		Categories []string
		Statuses   []string
	}{
		PageData:   s.page(w, r, "Inventory"),
		Items:      items,
		Filter:     filter,
		Categories: categories,
		Statuses:   statuses,
	})
}

// ItemDetailPage handles GET /item/{code}.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	item := s.lookupItem(w, r)
	if item == nil {
		return
	}

	var qr template.URL
	if data, err := s.itemQR(r, item); err != nil {
		slog.Error("failed to compose QR code", "code", item.Code, "error", err)
	} else {
		qr = template.URL(render.DataURI(data))
	}

	s.Templates.Render(w, "item_detail.html", &struct {
		PageData
		Item *model.Item
		QR   template.URL
	}{
		PageData: s.page(w, r, item.Name),
		Item:     item,
		QR:       qr,
	})
}

// ItemQRDownload handles GET /qr/{code}.
func (s *Server) ItemQRDownload(w http.ResponseWriter, r *http.Request) {
	item := s.lookupItem(w, r)
	if item == nil {
		return
	}

	data, err := s.itemQR(r, item)
	if err != nil {
		slog.Error("failed to compose QR code", "code", item.Code, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+render.PNGFilename(item.Code)+`"`)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write QR response", "error", err)
	}
}

// itemForm is the add/edit page model. Values are echoed back on errors.
type itemForm struct {
	PageData
	Editing  bool
	Item     model.ItemInput
	Statuses []string
}

// AddItemPage handles GET /add.
func (s *Server) AddItemPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "item_form.html", &itemForm{
		PageData: s.page(w, r, "Add item"),
		Item:     model.ItemInput{Quantity: model.DefaultQuantity, Status: model.ItemStatusAvailable},
		Statuses: model.ItemStatuses,
	})
}

// AddItemSubmit handles POST /add.
func (s *Server) AddItemSubmit(w http.ResponseWriter, r *http.Request) {
	in, problem := parseItemForm(r)
	form := &itemForm{PageData: s.page(w, r, "Add item"), Item: in, Statuses: model.ItemStatuses}
	if problem != "" {
		form.Error = problem
		s.Templates.RenderStatus(w, http.StatusBadRequest, "item_form.html", form)
		return
	}

	var createdBy *int64
	if claims := GetWebClaims(r.Context()); claims != nil {
		createdBy = &claims.UserID
	}

	item, err := store.CreateItem(r.Context(), s.DB, in, createdBy)
	switch {
	case errors.Is(err, store.ErrDuplicateCode):
		form.Error = "Item code already exists"
		s.Templates.RenderStatus(w, http.StatusConflict, "item_form.html", form)
		return
	case errors.Is(err, codegen.ErrInvalidCode):
		form.Error = "Item code may only contain letters and digits (at most 20)"
		s.Templates.RenderStatus(w, http.StatusBadRequest, "item_form.html", form)
		return
	case err != nil:
		slog.Error("failed to create item", "error", err)
		form.Error = "Could not save the item. Please try again."
		s.Templates.RenderStatus(w, http.StatusInternalServerError, "item_form.html", form)
		return
	}

	slog.Info("item created", "user", username(form.User), "code", item.Code, "name", item.Name)
	http.Redirect(w, r, "/item/"+url.PathEscape(item.Code), http.StatusSeeOther)
}

// EditItemPage handles GET /edit/{code}.
func (s *Server) EditItemPage(w http.ResponseWriter, r *http.Request) {
	item := s.lookupItem(w, r)
	if item == nil {
		return
	}

	s.Templates.Render(w, "item_form.html", &itemForm{
		PageData: s.page(w, r, "Edit "+item.Name),
		Editing:  true,
		Item: model.ItemInput{
			Code:        item.Code,
			Name:        item.Name,
			Description: item.Description,
			Category:    item.Category,
			Location:    item.Location,
			Quantity:    item.Quantity,
			Status:      item.Status,
		},
		Statuses: model.ItemStatuses,
	})
}

// EditItemSubmit handles POST /edit/{code}.
func (s *Server) EditItemSubmit(w http.ResponseWriter, r *http.Request) {
	code := codegen.Normalize(r.PathValue("code"))
	in, problem := parseItemForm(r)
	in.Code = code

	form := &itemForm{PageData: s.page(w, r, "Edit item"), Editing: true, Item: in, Statuses: model.ItemStatuses}
	if problem != "" {
		form.Error = problem
		s.Templates.RenderStatus(w, http.StatusBadRequest, "item_form.html", form)
		return
	}

	item, err := store.UpdateItem(r.Context(), s.DB, code, in)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to update item", "error", err)
		form.Error = "Could not save the item. Please try again."
		s.Templates.RenderStatus(w, http.StatusInternalServerError, "item_form.html", form)
		return
	}

	slog.Info("item updated", "user", username(form.User), "code", item.Code, "status", item.Status)
	http.Redirect(w, r, "/item/"+url.PathEscape(item.Code), http.StatusSeeOther)
}

// DeleteItemSubmit handles POST /delete/{code}.
func (s *Server) DeleteItemSubmit(w http.ResponseWriter, r *http.Request) {
	code := codegen.Normalize(r.PathValue("code"))

	err := store.DeleteItem(r.Context(), s.DB, code)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to delete item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("item deleted", "user", username(GetWebClaims(r.Context())), "code", code)
	setFlash(w, "Item "+code+" deleted.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// lookupItem loads the item named in the path or writes a 404.
func (s *Server) lookupItem(w http.ResponseWriter, r *http.Request) *model.Item {
	item, err := store.GetItemByCode(r.Context(), s.DB, r.PathValue("code"))
	if err != nil {
		slog.Error("failed to get item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil
	}
	if item == nil {
		http.Error(w, "item not found", http.StatusNotFound)
		return nil
	}
	return item
}

// itemQR composes the PNG QR code for an item.
func (s *Server) itemQR(r *http.Request, item *model.Item) ([]byte, error) {
	img, err := s.Composer.Compose(s.Config.ItemPayload(r, item.ID, item.Code))
	if err != nil {
		return nil, err
	}
	return render.PNG(img)
}

// parseItemForm reads the add/edit form. The returned message is non-empty
// when the submission must be corrected.
func parseItemForm(r *http.Request) (model.ItemInput, string) {
	in := model.ItemInput{
		Code:        r.FormValue("code"),
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Location:    r.FormValue("location"),
		Quantity:    model.DefaultQuantity,
		Status:      r.FormValue("status"),
	}

	if raw := strings.TrimSpace(r.FormValue("quantity")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return in, "Quantity must be a whole number of zero or more"
		}
		in.Quantity = n
	}

	in.Normalize()
	if in.Name == "" {
		return in, "Name is required"
	}
	return in, ""
}
