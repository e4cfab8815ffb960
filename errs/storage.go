package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Upload & Storage Errors
var (
	ErrInvalidFileType   = errors.New("invalid file type")
	ErrFileTooLarge      = errors.New("file too large")
	ErrImageProcessing   = errors.New("image processing failed")
	ErrStorageWrite      = errors.New("storage write failed")
	ErrStorageDelete     = errors.New("storage delete failed")
	ErrStorageList       = errors.New("storage list failed")
	ErrInvalidURL        = errors.New("invalid image URL")
	ErrObjectExists      = errors.New("object already exists")
	ErrMissingUploadFile = errors.New("no file provided")
)

func NewInvalidFileTypeError(contentType string, allowedTypes []string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnsupportedMediaType,
		err:        ErrInvalidFileType,
		Details:    fmt.Sprintf("%q is not allowed, use one of %s", contentType, strings.Join(allowedTypes, ", ")),
		Field:      "file",
	}
}

func NewFileTooLargeError(size, maxSize int64) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusRequestEntityTooLarge,
		err:        ErrFileTooLarge,
		Details:    fmt.Sprintf("%d bytes exceeds the maximum of %d bytes", size, maxSize),
		Field:      "file",
	}
}

func NewMissingUploadFileError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrMissingUploadFile,
		Field:      "file",
	}
}

func NewImageProcessingError(cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnprocessableEntity,
		err:        ErrImageProcessing,
		Details:    cause.Error(),
		Field:      "file",
		Cause:      cause,
	}
}

func NewStorageWriteError(key string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrStorageWrite,
		Details:    fmt.Sprintf("Failed to write %s", key),
		Cause:      cause,
	}
}

func NewStorageDeleteError(key string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrStorageDelete,
		Details:    fmt.Sprintf("Failed to delete %s", key),
		Cause:      cause,
	}
}

func NewStorageListError(prefix string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrStorageList,
		Details:    fmt.Sprintf("Failed to list %s", prefix),
		Cause:      cause,
	}
}

func NewInvalidURLError(url string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrInvalidURL,
		Details:    url,
		Field:      "url",
	}
}

func IsInvalidFileType(err error) bool {
	return errors.Is(err, ErrInvalidFileType)
}

func IsFileTooLarge(err error) bool {
	return errors.Is(err, ErrFileTooLarge)
}

func IsImageProcessing(err error) bool {
	return errors.Is(err, ErrImageProcessing)
}

func IsStorageWrite(err error) bool {
	return errors.Is(err, ErrStorageWrite)
}

func IsInvalidURL(err error) bool {
	return errors.Is(err, ErrInvalidURL)
}
