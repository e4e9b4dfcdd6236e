package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
	"github.com/angelmondragon/inventory-service/pkg/logger"
	"github.com/angelmondragon/inventory-service/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError renders err as an error envelope. Untyped errors become a
// generic internal error; validation errors yield one entry per field.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	status := typed.HTTPStatus()
	payload := types.ErrorEnvelope{Errors: errorEntries(typed, status)}

	if logg != nil {
		dump := pkgerrors.Dump(err)

		fields := dump.Fields()
		fields["status"] = status

		ctx = logg.WithFields(ctx, fields)
		if status >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, status, payload)
}

func errorEntries(typed *pkgerrors.Error, status int) []types.APIError {
	meta := pkgerrors.MetadataFor(typed.Code())
	statusText := strconv.Itoa(status)

	if fields, ok := typed.Details().([]pkgerrors.FieldError); ok && len(fields) > 0 {
		entries := make([]types.APIError, 0, len(fields))
		for _, fe := range fields {
			entries = append(entries, types.APIError{
				Status: statusText,
				Title:  meta.Title,
				Detail: fe.Field + ": " + fe.Message,
			})
		}
		return entries
	}

	detail := meta.PublicMessage
	if meta.DetailsAllowed && typed.Message() != "" {
		detail = typed.Message()
	}
	return []types.APIError{{Status: statusText, Title: meta.Title, Detail: detail}}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
