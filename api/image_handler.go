package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/storage"
)

// multipartOverhead leaves room for the form framing around an upload of storage.MaxUploadSize
const multipartOverhead = 1 << 20

type imageHandler struct {
	responder Responder
	logger    zerolog.Logger
	images    *storage.Gateway
}

func newImageHandler(images *storage.Gateway) imageHandler {
	logger := log.With().Str("handlerName", "imageHandler").Logger()

	return imageHandler{
		responder: NewResponder(logger),
		logger:    logger,
		images:    images,
	}
}

// uploadImage stores an image for a project
// @Summary Upload image
// @Description Resizes and re-encodes the uploaded image and stores it under the project. GIFs are kept as they are.
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Param file formData file true "JPEG, PNG, GIF or WebP image, at most 10MB"
// @Success 201 {object} Envelope{data=UploadResponse} "Public URL of the stored image"
// @Failure 400 {object} Envelope "Bad Request - No file"
// @Failure 413 {object} Envelope "Request Entity Too Large - File too large"
// @Failure 415 {object} Envelope "Unsupported Media Type - Not an accepted image type"
// @Failure 422 {object} Envelope "Unprocessable Entity - Image could not be decoded"
// @Router /admin/projects/{projectID}/images [post]
func (h imageHandler) uploadImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Project admin check handled by middleware
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize+multipartOverhead)
		file, header, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			switch {
			case errors.As(err, &maxErr):
				h.responder.WriteError(w, errs.NewFileTooLargeError(maxErr.Limit, storage.MaxUploadSize))
			case errors.Is(err, http.ErrMissingFile):
				h.responder.WriteError(w, errs.NewMissingUploadFileError())
			default:
				h.responder.WriteError(w, errs.NewMalformedPayloadError("multipart", err))
			}
			return
		}
		defer file.Close()

		if header.Size > storage.MaxUploadSize {
			h.responder.WriteError(w, errs.NewFileTooLargeError(header.Size, storage.MaxUploadSize))
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, storage.MaxUploadSize+1))
		if err != nil {
			h.responder.WriteError(w, errs.NewMalformedPayloadError("multipart", err))
			return
		}

		url, err := h.images.Upload(r.Context(), data, header.Filename, header.Header.Get("Content-Type"), projectID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSONStatus(w, http.StatusCreated, UploadResponse{URL: url})
	}
}

// listImages returns the project's most recent images
// @Summary List images
// @Tags Images
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} Envelope{data=[]string} "Public URLs, newest first"
// @Failure 403 {object} Envelope "Forbidden - Not an admin of the project"
// @Router /admin/projects/{projectID}/images [get]
func (h imageHandler) listImages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Project admin check handled by middleware
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		urls, err := h.images.List(r.Context(), projectID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, urls)
	}
}

// deleteImage removes one of the project's images
// @Summary Delete image
// @Tags Images
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Param url query string true "Public URL of the image"
// @Success 200 {object} Envelope{data=DeletedResponse} "Deleted"
// @Failure 400 {object} Envelope "Bad Request - Not an image URL of this service"
// @Failure 403 {object} Envelope "Forbidden - Image belongs to another project"
// @Router /admin/projects/{projectID}/images [delete]
func (h imageHandler) deleteImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Project admin check handled by middleware
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		url := r.URL.Query().Get("url")
		if err := h.checkImageScope(url, projectID); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.images.Delete(r.Context(), url); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, DeletedResponse{URL: url, Message: "image deleted"})
	}
}

// checkImageScope accepts only URLs of this gateway that live under the project's prefix
func (h imageHandler) checkImageScope(url string, projectID uuid.UUID) error {
	if url == "" || !h.images.Owns(url) {
		return errs.NewInvalidURLError(url)
	}
	key, ok := h.images.KeyFromURL(url)
	if !ok {
		return errs.NewInvalidURLError(url)
	}
	if !strings.HasPrefix(key, projectID.String()+"/") {
		return errs.NewForbiddenError("image belongs to another project")
	}
	return nil
}
