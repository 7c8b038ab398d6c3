package handler

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/labels"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/httputil"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// maxImportSize caps location import uploads
const maxImportSize = 10 << 20

// LocationHandler handles location directory endpoints
type LocationHandler struct {
	directory *service.DirectoryService
	logger    *logger.Logger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(directory *service.DirectoryService, log *logger.Logger) *LocationHandler {
	return &LocationHandler{
		directory: directory,
		logger:    log,
	}
}

// ScanLocation resolves a scanned location barcode and its stock
// POST /api/wms/scan-location
func (h *LocationHandler) ScanLocation(w http.ResponseWriter, r *http.Request) {
	var req api.ScanRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	contents, err := h.directory.ScanLocation(r.Context(), req.Barcode)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, contents)
}

// Create registers a location
// POST /api/wms/locations
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLocationInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	loc, err := h.directory.CreateLocation(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, loc)
}

// List lists locations, optionally filtered by ?type=
// GET /api/wms/locations
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locs, err := h.directory.ListLocations(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, locs, &httputil.Meta{Total: len(locs)})
}

// Get gets a location by ID
// GET /api/wms/locations/{id}
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	loc, err := h.directory.GetLocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, loc)
}

// Import creates locations from an uploaded XLSX workbook, sent either as
// the "file" field of a multipart form or as the raw request body.
// POST /api/wms/locations/import
func (h *LocationHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	var workbook io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxImportSize); err != nil {
			httputil.Error(w, errors.BadRequest("expected an XLSX upload in the \"file\" field"))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			httputil.Error(w, errors.BadRequest("expected an XLSX upload in the \"file\" field"))
			return
		}
		defer file.Close()
		workbook = file
	}

	result, err := h.directory.ImportLocations(r.Context(), workbook)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.Info().
		Int("created", len(result.Created)).
		Int("rejected", len(result.Errors)).
		Msg("locations imported")
	httputil.JSON(w, http.StatusOK, result)
}

// LabelSheet downloads the location label and bay totem workbook
// GET /api/wms/labels.xlsx
func (h *LocationHandler) LabelSheet(w http.ResponseWriter, r *http.Request) {
	// Rendered to memory first so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.directory.LabelSheet(r.Context(), &buf); err != nil {
		httputil.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", labels.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="location-labels.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write label sheet")
	}
}

// Totems lists the bay totems
// GET /api/wms/labels/totems
func (h *LocationHandler) Totems(w http.ResponseWriter, r *http.Request) {
	totems, err := h.directory.Totems(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, totems, &httputil.Meta{Total: len(totems)})
}
