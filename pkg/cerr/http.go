package cerr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kazz187/taskboard/pkg/clog"
)

type httpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON encodes response as the reply body with the given status.
func WriteJSON(ctx context.Context, rw http.ResponseWriter, status int, response any) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(response); err != nil {
		WriteJSONError(ctx, rw, NewError(Internal, "server error", err))
		return
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)
	if _, err := rw.Write(buf.Bytes()); err != nil {
		clog.AddError(ctx, NewError(Internal, "server error", err))
	}
}

// WriteJSONError writes err as {"code","message"} with the status derived from its Code.
func WriteJSONError(ctx context.Context, rw http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		err = NewError(Canceled, "connection closed", err)
	}
	var cErr *Error
	if !errors.As(err, &cErr) {
		cErr = NewError(Unknown, "unknown error", err)
	}
	clog.AddError(ctx, err)
	if cErr.Stack != "" {
		clog.AddStack(ctx, cErr.Stack)
	}

	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if encErr := enc.Encode(httpError{Code: cErr.Code.String(), Message: cErr.Msg}); encErr != nil {
		buf = bytes.NewBufferString(`{"code":"internal","message":"server error"}`)
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(cErr.Code.HTTPCode())
	if _, wErr := rw.Write(buf.Bytes()); wErr != nil {
		clog.AddError(ctx, errors.Join(err, wErr))
	}
}
