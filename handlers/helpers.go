package handlers

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"tenderalign/services"
)

// errorJSON writes a JSON error body with the given status.
func errorJSON(e *core.RequestEvent, status int, message string) error {
	return e.JSON(status, map[string]string{"error": message})
}

// serviceError maps the typed import errors onto HTTP statuses: structural
// and validation failures are the caller's problem (422), hierarchy
// conflicts are 409, anything else is a server fault.
func serviceError(e *core.RequestEvent, component string, err error) error {
	var validationErr *services.ValidationError
	var structuralErr *services.StructuralParseError
	var conflictErr *services.ConflictError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &structuralErr):
		return errorJSON(e, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &conflictErr):
		return errorJSON(e, http.StatusConflict, err.Error())
	}

	log.Printf("%s: %v", component, err)
	return errorJSON(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

// formFile pulls the uploaded spreadsheet out of a multipart request.
// Callers must close the returned file.
func formFile(e *core.RequestEvent) (multipart.File, string, error) {
	// Parse multipart form (max 32MB)
	if err := e.Request.ParseMultipartForm(32 << 20); err != nil {
		return nil, "", errors.New("file too large or invalid form data")
	}
	file, header, err := e.Request.FormFile("file")
	if err != nil {
		return nil, "", errors.New("please select a file to upload")
	}
	return file, header.Filename, nil
}
