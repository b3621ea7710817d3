package server

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const contentTypeMsgpack = "application/msgpack"

type errorResponse struct {
	Detail any `json:"detail"`
}

// fieldError mirrors the validation error entries returned for a missing
// form field.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func wantsMsgpack(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mt == "application/msgpack" || mt == "application/x-msgpack" {
			return true
		}
	}
	return false
}

// respond writes v as JSON, or as MessagePack when the client asks for it.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if !wantsMsgpack(r) {
		writeJSON(w, status, v)
		return
	}

	data, err := msgpack.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeMissingField(w http.ResponseWriter, field string) {
	writeError(w, http.StatusUnprocessableEntity, []fieldError{{
		Loc:  []string{"body", field},
		Msg:  "Field required",
		Type: "missing",
	}})
}
