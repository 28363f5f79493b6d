package attachments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/denteo/labflow/internal/dal/filestore"
	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/denteo/labflow/internal/service/services/ordersvc"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxUploadBytes = 64 << 20

type service interface {
	UploadAttachment(ctx context.Context, orderID uuid.UUID, kind order.AttachmentKind, filename string, data io.Reader) (string, error)
	SignAttachmentURL(ctx context.Context, orderID uuid.UUID, kind order.AttachmentKind) (string, error)
}

type fileStore interface {
	VerifyToken(tokenString string) (string, error)
	Open(path string) (io.ReadCloser, error)
}

// Upload stores the uploaded file as the order's photo or scan attachment.
func Upload(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order id", "error", err)

		return
	}

	kind, err := order.ParseAttachmentKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)

		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing multipart form", "error", err)

		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error reading uploaded file", "error", err)

		return
	}
	defer file.Close()

	path, err := service.UploadAttachment(r.Context(), id, kind, header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ordersvc.ErrUnsupportedFileType):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			slog.Error("Error uploading attachment", "error", err)
		}

		return
	}

	if err := json.NewEncoder(w).Encode(map[string]string{"path": path}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}

// SignURL returns a time limited download link for the order's attachment.
func SignURL(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order id", "error", err)

		return
	}

	kind, err := order.ParseAttachmentKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)

		return
	}

	token, err := service.SignAttachmentURL(r.Context(), id, kind)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound), errors.Is(err, ordersvc.ErrAttachmentMissing):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			slog.Error("Error signing attachment url", "error", err)
		}

		return
	}

	if err := json.NewEncoder(w).Encode(map[string]string{"url": "/api/files/" + token}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}

// Download redeems a signed token and streams the file it points at. Expired
// or tampered tokens come back as 403, a valid token whose file is gone as
// 404.
func Download(w http.ResponseWriter, r *http.Request, store fileStore) {
	path, err := store.VerifyToken(chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, filestore.ErrInvalidToken) {
			http.Error(w, err.Error(), http.StatusForbidden)

			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error verifying file token", "error", err)

		return
	}

	file, err := store.Open(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)

		return
	}
	defer file.Close()

	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(path)+"\"")

	if _, err := io.Copy(w, file); err != nil {
		slog.Error("Error streaming file", "error", err)
	}
}
