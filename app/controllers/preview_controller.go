package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	"skymock/app/export"
	"skymock/app/form"
	"skymock/app/ingest"
	"skymock/app/middleware"
	"skymock/app/models"
	"skymock/app/render"
	"skymock/app/repositories"
)

// PreviewOptions wires a PreviewController.
type PreviewOptions struct {
	Renderer   *render.Renderer
	Rasterizer export.Rasterizer
	Ingester   *ingest.Ingester
	Prefs      repositories.PreferenceRepository

	// Documents is shared with the live controller. Nil builds one over Prefs.
	Documents *Documents
	Export    export.Options
}

// PreviewController renders, exports and ingests on behalf of the browser
type PreviewController struct {
	renderer *render.Renderer
	raster   export.Rasterizer
	ingester *ingest.Ingester
	prefs    repositories.PreferenceRepository
	docs     *Documents
	opts     export.Options

	// exporters holds the in-flight exporter of each session.
	exporters sync.Map
}

// NewPreviewController creates a new PreviewController
func NewPreviewController(opts PreviewOptions) *PreviewController {
	ing := opts.Ingester
	if ing == nil {
		ing = ingest.NewIngester(0)
	}
	docs := opts.Documents
	if docs == nil {
		docs = NewDocuments(opts.Prefs)
	}
	return &PreviewController{
		renderer: opts.Renderer,
		raster:   opts.Rasterizer,
		ingester: ing,
		prefs:    opts.Prefs,
		docs:     docs,
		opts:     opts.Export,
	}
}

type previewResponse struct {
	HTML       string              `json:"html"`
	Characters form.CharacterCount `json:"characters"`
}

type exportRequest struct {
	Post  models.PostData `json:"post"`
	Theme string          `json:"theme"`
	Size  string          `json:"size"`
}

type imageResponse struct {
	DataURL     string `json:"dataUrl"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"contentType"`
}

type initialsRequest struct {
	DisplayName string `json:"displayName"`
}

type themeBody struct {
	Theme string `json:"theme"`
}

// Preview handles POST /api/preview
func (pc *PreviewController) Preview(w http.ResponseWriter, r *http.Request) {
	var data models.PostData
	if err := decodeJSON(r, &data); err != nil {
		sendError(w, r, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	data.Normalize()
	if err := data.Validate(); err != nil {
		sendError(w, r, "Invalid post: "+err.Error(), http.StatusBadRequest)
		return
	}

	html, err := pc.renderer.Render(data)
	if err != nil {
		log.Printf("[preview] render failed: %v", err)
		sendError(w, r, "Failed to render post", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusOK, previewResponse{
		HTML:       string(html),
		Characters: form.CountCharacters(data.Content),
	})
}

// Export handles POST /api/export and answers with a PNG attachment.
func (pc *PreviewController) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		sendError(w, r, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Post.Normalize()
	if err := req.Post.Validate(); err != nil {
		sendError(w, r, "Invalid post: "+err.Error(), http.StatusBadRequest)
		return
	}

	sessionID := middleware.SessionID(r.Context())
	fresh := export.NewExporter(pc.docs.For(sessionID), pc.raster, pc.opts)
	actual, loaded := pc.exporters.LoadOrStore(sessionID, fresh)
	exporter := actual.(*export.Exporter)
	if !loaded {
		defer pc.exporters.CompareAndDelete(sessionID, exporter)
	}

	result, err := exporter.Export(r.Context(), req.Post, models.ParseTheme(req.Theme), export.ParseSize(req.Size))
	if errors.Is(err, export.ErrBusy) {
		sendError(w, r, "Export already in progress", http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("[export] session %s: %v", sessionID, err)
		sendError(w, r, "Failed to export image. Please try again.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}

// Images handles POST /api/images with a multipart "file" and "role".
func (pc *PreviewController) Images(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, pc.ingester.MaxBytes()+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		sendError(w, r, "Invalid upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	role, err := ingest.ParseRole(r.FormValue("role"))
	if err != nil {
		sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		sendError(w, r, "File is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	img, err := pc.ingester.Ingest(file, header.Size, role)
	if err != nil {
		status := http.StatusBadRequest
		if !isIngestRejection(err) {
			status = http.StatusInternalServerError
			log.Printf("[ingest] %s upload failed: %v", role, err)
		}
		sendError(w, r, err.Error(), status)
		return
	}
	sendJSON(w, http.StatusOK, newImageResponse(img))
}

// Initials handles POST /api/images/initials
func (pc *PreviewController) Initials(w http.ResponseWriter, r *http.Request) {
	var req initialsRequest
	if err := decodeJSON(r, &req); err != nil {
		sendError(w, r, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	img, err := ingest.InitialsAvatar(req.DisplayName)
	if errors.Is(err, ingest.ErrNoInitials) {
		sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		sendError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusOK, newImageResponse(img))
}

// GetTheme handles GET /api/theme
func (pc *PreviewController) GetTheme(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, themeBody{Theme: string(pc.theme(middleware.SessionID(r.Context())))})
}

// SetTheme handles PUT /api/theme
func (pc *PreviewController) SetTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := decodeJSON(r, &body); err != nil {
		sendError(w, r, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	theme := models.Theme(body.Theme)
	if theme != models.ThemeLight && theme != models.ThemeDark {
		sendError(w, r, "Theme must be light or dark", http.StatusBadRequest)
		return
	}
	if pc.prefs != nil {
		if err := pc.prefs.SetTheme(middleware.SessionID(r.Context()), theme); err != nil {
			log.Printf("[theme] failed to save: %v", err)
			sendError(w, r, "Failed to save theme", http.StatusInternalServerError)
			return
		}
	}
	sendJSON(w, http.StatusOK, themeBody{Theme: string(theme)})
}

func (pc *PreviewController) theme(sessionID string) models.Theme {
	return pc.docs.For(sessionID).Theme()
}

func isIngestRejection(err error) bool {
	for _, target := range []error{ingest.ErrTooLarge, ingest.ErrNotImage, ingest.ErrDecode, ingest.ErrTooSmall, ingest.ErrUnknownRole} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func newImageResponse(img *ingest.Image) imageResponse {
	return imageResponse{
		DataURL:     img.DataURL(),
		Width:       img.Width,
		Height:      img.Height,
		ContentType: img.ContentType,
	}
}
