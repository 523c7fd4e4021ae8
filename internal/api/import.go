package api

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/starford/nestmaid/internal/docservice"
)

const maxImportBytes = 10 << 20 // 10 MB

// ImportHandler accepts diagram files uploaded as multipart forms.
type ImportHandler struct {
	svc *docservice.Service
}

// NewImportHandler creates an import handler backed by the document service.
func NewImportHandler(svc *docservice.Service) *ImportHandler {
	return &ImportHandler{svc: svc}
}

// importPath validates that the filename is a plain name (no path separators,
// no traversal) and joins it under dir.
func importPath(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		return cleaned, nil
	}
	return dir + "/" + cleaned, nil
}

// Upload handles POST /api/import (multipart/form-data).
//
// Fields: "file" (required), "dir" (target folder inside the vault) and
// "overwrite" (bool, replace an existing document).
//
//	@Summary		Import a diagram document
//	@Tags			documents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"Diagram file"
//	@Param			dir			formData	string	false	"Target folder"
//	@Param			overwrite	formData	bool	false	"Replace an existing document"
//	@Success		201			{object}	ImportResponse
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	target, err := importPath(r.FormValue("dir"), header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	overwrite, _ := strconv.ParseBool(r.FormValue("overwrite"))

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	if len(content) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("file is empty"))
		return
	}

	doc, err := h.svc.ImportDocument(r.Context(), target, content, overwrite)
	if err != nil {
		writeError(w, "import document", target, err)
		return
	}

	writeJSON(w, http.StatusCreated, ImportResponse{
		Path:     doc.Path,
		Size:     int64(len(content)),
		Status:   doc.Status,
		Checksum: doc.Checksum,
	})
}
