package api

import (
	"encoding/json"
	"io"
	"net/http"

	"chainreact/internal/common"
	"chainreact/pkg/errors"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func writeSuccess(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	writeJSON(w, r, statusCode, common.NewSuccessResponse(data))
}

func writePage(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}, meta *common.PaginationResponse) {
	response := common.NewSuccessResponse(data)
	response.Meta = meta
	writeJSON(w, r, statusCode, response)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.GetAppError(err)
	if appErr == nil {
		appErr = errors.New(errors.ErrorTypeInternal, errors.CodeInternal, "internal server error")
	}

	response := common.NewErrorResponse(string(appErr.Type), string(appErr.Code), appErr.Message, appErr.Details)
	if len(appErr.Context) > 0 {
		response.Error.Context = appErr.Context
	}

	writeJSON(w, r, appErr.HTTPStatus(), response)
}

func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, response *common.APIResponse) {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		response.RequestID = id
		w.Header().Set(common.HeaderRequestID, id)
	}

	w.Header().Set(common.HeaderContentType, common.ContentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// decodeJSON parses a request body, distinguishing empty bodies, oversized
// bodies, and malformed JSON for the caller's error message.
func decodeJSON(r *http.Request, dst interface{}) error {
	defer io.Copy(io.Discard, r.Body)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.NewValidationError("request body is required")
		}
		if _, ok := err.(*http.MaxBytesError); ok {
			return errors.NewValidationError("request body is too large")
		}
		return errors.NewValidationError("invalid request body: " + err.Error())
	}
	return nil
}
