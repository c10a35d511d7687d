package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"
)

// maxBodyBytes bounds request bodies. Message content is capped well below it.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, err *apiError) {
	if err == nil {
		return
	}
	writeJSON(w, err.Status, errorResponse{Error: errorBody{Code: err.Code, Message: err.Message}})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) *apiError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// maxQuerySeconds keeps second counts convertible to a time.Duration.
const maxQuerySeconds = int64(math.MaxInt64 / int64(time.Second))

// querySeconds parses a non-negative second count into a Duration.
func querySeconds(r *http.Request, name string) (time.Duration, *apiError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 || v > maxQuerySeconds {
		return 0, badRequest(fmt.Sprintf("%s must be a number of seconds between 0 and %d", name, maxQuerySeconds))
	}
	return time.Duration(v) * time.Second, nil
}

func queryBool(r *http.Request, name string) (bool, *apiError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest(name + " must be a boolean")
	}
	return v, nil
}

func queryInt(r *http.Request, name string) (int, *apiError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(name + " must be an integer")
	}
	return v, nil
}
