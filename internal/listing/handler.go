package listing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bmbroch/ceylonstay/internal/httpx"
	"github.com/bmbroch/ceylonstay/internal/middleware"
	"github.com/bmbroch/ceylonstay/internal/storage"
	"github.com/bmbroch/ceylonstay/internal/store"
	"github.com/bmbroch/ceylonstay/internal/transport"
	"github.com/bmbroch/ceylonstay/internal/validation"
)

const (
	requestTimeout = 5 * time.Second
	uploadTimeout  = 60 * time.Second

	defaultLimit = 50
	maxLimit     = 200
)

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

type Handler struct {
	service        *Service
	catalog        *Catalog
	val            *validation.Validator
	log            *slog.Logger
	whatsAppNumber string
	maxUploadBytes int64
}

func NewHandler(service *Service, catalog *Catalog, val *validation.Validator, log *slog.Logger, whatsAppNumber string, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &Handler{
		service:        service,
		catalog:        catalog,
		val:            val,
		log:            log,
		whatsAppNumber: whatsAppNumber,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

// listingResponse is the wire shape of a listing plus the contact deep link
// the frontend renders on each card.
type listingResponse struct {
	Listing
	InquiryURL string `json:"inquiry_url,omitempty"`
}

func (h *Handler) toResponse(l Listing) listingResponse {
	return listingResponse{
		Listing:    l,
		InquiryURL: InquiryLink(h.whatsAppNumber, l.Title),
	}
}

func (h *Handler) toResponses(items []Listing) []listingResponse {
	out := make([]listingResponse, len(items))
	for i, l := range items {
		out[i] = h.toResponse(l)
	}
	return out
}

// PublicList serves the gallery feed: listed properties only, available-now
// first, then future availability dates ascending.
func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := h.catalog.VisibleSorted(ctx)
	if err != nil {
		log.Error("public list failed", slog.String("error", err.Error()))
		h.writeServiceError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":             h.toResponses(items),
		"owner_contact_url": OwnerContactLink(h.whatsAppNumber),
	})
}

func (h *Handler) PublicGet(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	item, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if !item.IsListed {
		log.Warn("public get: delisted", slog.String("listing_id", item.ID))
		transport.WriteError(w, http.StatusNotFound, "listing not found", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, h.toResponse(item))
}

// AdminList returns every listing, delisted included, newest first. It always
// reads fresh so operators see their own writes immediately.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), defaultLimit, maxLimit)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	items, err := h.catalog.AllSorted(ctx)
	if err != nil {
		log.Error("admin list failed", slog.String("error", err.Error()))
		h.writeServiceError(w, err)
		return
	}

	total := int64(len(items))
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  h.toResponses(items[offset:end]),
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (h *Handler) AdminGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	item, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, h.toResponse(item))
}

// AdminCreate accepts a multipart form: listing fields plus one or more
// "photos" files. The record is written only after every photo has uploaded.
func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	req, photos, ok := h.decodeMultipart(w, r, log)
	if !ok {
		return
	}

	item, err := h.service.Create(ctx, req, photos)
	if err != nil {
		log.Error("create listing failed", slog.String("error", err.Error()))
		h.writeServiceError(w, err)
		return
	}

	log.Info("listing created",
		slog.String("listing_id", item.ID),
		slog.Int("photos", len(item.Photos)),
	)
	transport.WriteJSON(w, http.StatusCreated, h.toResponse(item))
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req UpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	item, err := h.service.Update(ctx, chi.URLParam(r, "id"), req)
	if err != nil {
		log.Error("update listing failed", slog.String("error", err.Error()))
		h.writeServiceError(w, err)
		return
	}

	log.Info("listing updated", slog.String("listing_id", item.ID))
	transport.WriteJSON(w, http.StatusOK, h.toResponse(item))
}

type setListedRequest struct {
	IsListed *bool `json:"is_listed" validate:"required"`
}

func (h *Handler) AdminSetListed(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req setListedRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil || req.IsListed == nil {
		transport.WriteError(w, http.StatusBadRequest, "is_listed is required", nil)
		return
	}

	item, err := h.service.SetListed(ctx, chi.URLParam(r, "id"), *req.IsListed)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	log.Info("listing visibility changed",
		slog.String("listing_id", item.ID),
		slog.Bool("is_listed", item.IsListed),
	)
	transport.WriteJSON(w, http.StatusOK, h.toResponse(item))
}

func (h *Handler) AdminAddPhotos(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	photos, ok := h.readPhotoFiles(w, r, log)
	if !ok {
		return
	}

	item, err := h.service.AddPhotos(ctx, chi.URLParam(r, "id"), photos)
	if err != nil {
		log.Error("add photos failed", slog.String("error", err.Error()))
		h.writeServiceError(w, err)
		return
	}

	log.Info("photos added",
		slog.String("listing_id", item.ID),
		slog.Int("photos", len(item.Photos)),
	)
	transport.WriteJSON(w, http.StatusOK, h.toResponse(item))
}

func (h *Handler) AdminDeletePhoto(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	item, err := h.service.RemovePhoto(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "photoID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	log.Info("photo removed", slog.String("listing_id", item.ID))
	transport.WriteJSON(w, http.StatusOK, h.toResponse(item))
}

type reorderRequest struct {
	Order []string `json:"order" validate:"required,min=1"`
}

func (h *Handler) AdminReorderPhotos(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req reorderRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	item, err := h.service.ReorderPhotos(ctx, chi.URLParam(r, "id"), req.Order)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	log.Info("photos reordered", slog.String("listing_id", item.ID))
	transport.WriteJSON(w, http.StatusOK, h.toResponse(item))
}

// decodeMultipart pulls listing fields and photo files out of a multipart
// create form. Writes the error response itself when the form is bad.
func (h *Handler) decodeMultipart(w http.ResponseWriter, r *http.Request, log *slog.Logger) (CreateRequest, []PhotoUpload, bool) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		log.Warn("create: bad multipart form", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, "invalid multipart form", nil)
		return CreateRequest{}, nil, false
	}

	req := CreateRequest{
		Title:         r.FormValue("title"),
		Description:   r.FormValue("description"),
		Location:      r.FormValue("location"),
		Bedrooms:      formInt(r, "bedrooms"),
		Bathrooms:     formInt(r, "bathrooms"),
		PricePerNight: formInt(r, "price_per_night"),
		PricePerMonth: formInt(r, "price_per_month"),
		PricingMode:   r.FormValue("pricing_mode"),
		AvailableDate: r.FormValue("available_date"),
	}
	if raw := r.FormValue("is_listed"); raw != "" {
		v := raw == "true" || raw == "1"
		req.IsListed = &v
	}

	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return CreateRequest{}, nil, false
	}

	photos, ok := h.readPhotoFiles(w, r, log)
	if !ok {
		return CreateRequest{}, nil, false
	}
	return req, photos, true
}

// readPhotoFiles collects the "photos" files from an already-parsed multipart
// form, enforcing the image MIME whitelist.
func (h *Handler) readPhotoFiles(w http.ResponseWriter, r *http.Request, log *slog.Logger) ([]PhotoUpload, bool) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			transport.WriteError(w, http.StatusBadRequest, "invalid multipart form", nil)
			return nil, false
		}
	}

	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		transport.WriteError(w, http.StatusBadRequest, "at least one photo is required", nil)
		return nil, false
	}

	photos := make([]PhotoUpload, 0, len(files))
	for _, fh := range files {
		upload, err := readPhotoFile(fh)
		if err != nil {
			log.Warn("rejected photo", slog.String("name", fh.Filename), slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
			return nil, false
		}
		photos = append(photos, upload)
	}
	return photos, true
}

func readPhotoFile(fh *multipart.FileHeader) (PhotoUpload, error) {
	contentType := fh.Header.Get("Content-Type")
	if !allowedPhotoTypes[contentType] {
		return PhotoUpload{}, errors.New("unsupported photo type: " + contentType)
	}

	f, err := fh.Open()
	if err != nil {
		return PhotoUpload{}, errors.New("unreadable photo: " + fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return PhotoUpload{}, errors.New("unreadable photo: " + fh.Filename)
	}

	return PhotoUpload{Name: fh.Filename, ContentType: contentType, Data: data}, nil
}

func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// writeServiceError maps domain and infrastructure failures onto HTTP status
// codes: missing records are 404, bad photo manipulations 400, upload
// failures 502, unreachable backends 503.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var retryErr *storage.RetryError
	switch {
	case errors.Is(err, ErrNotFound):
		transport.WriteError(w, http.StatusNotFound, "listing not found", nil)
	case errors.Is(err, ErrPhotoNotFound):
		transport.WriteError(w, http.StatusNotFound, "photo not found", nil)
	case errors.Is(err, ErrNoPhotos):
		transport.WriteError(w, http.StatusBadRequest, "at least one photo is required", nil)
	case errors.Is(err, ErrBadPhotoOrder):
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.As(err, &retryErr):
		transport.WriteError(w, http.StatusBadGateway, "photo upload failed", nil)
	case errors.Is(err, storage.ErrAuthRequired), errors.Is(err, storage.ErrPermissionDenied):
		transport.WriteError(w, http.StatusBadGateway, "storage unavailable", nil)
	case errors.Is(err, store.ErrUnavailable):
		transport.WriteError(w, http.StatusServiceUnavailable, "backend unavailable", nil)
	case errors.Is(err, store.ErrPermissionDenied), errors.Is(err, store.ErrAuthRequired):
		transport.WriteError(w, http.StatusBadGateway, "backend rejected request", nil)
	case errors.Is(err, context.DeadlineExceeded):
		transport.WriteError(w, http.StatusGatewayTimeout, "request timed out", nil)
	default:
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
