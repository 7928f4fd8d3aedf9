// Package vehicles exposes the garage as JSON over HTTP.
package vehicles

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/carbridge/core/model"
	"github.com/kilianp07/carbridge/core/observable"
)

// Status is the JSON view of one vehicle. Attributes maps the path below the
// vehicle to the formatted value.
type Status struct {
	VIN        string            `json:"vin"`
	Type       string            `json:"type,omitempty"`
	Attributes map[string]string `json:"attributes"`
}

// NewHandler serves GET / with all vehicles, optionally filtered by
// ?type=, and GET /{vin} with a single vehicle.
func NewHandler(tree *model.CarConnectivity) http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		typ := req.URL.Query().Get("type")
		out := []Status{}
		for _, v := range tree.Garage.Vehicles() {
			if !v.Enabled() {
				continue
			}
			s := statusOf(v)
			if typ != "" && s.Type != typ {
				continue
			}
			out = append(out, s)
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Get("/{vin}", func(w http.ResponseWriter, req *http.Request) {
		v, ok := tree.Garage.Vehicle(strings.ToUpper(chi.URLParam(req, "vin")))
		if !ok || !v.Enabled() {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "vehicle not found"})
			return
		}
		writeJSON(w, http.StatusOK, statusOf(v))
	})
	return r
}

func statusOf(v *model.Vehicle) Status {
	s := Status{VIN: v.ID(), Attributes: map[string]string{}}
	if t, ok := v.Type.Value(); ok {
		s.Type = string(t)
	}
	base := v.Path() + "/"
	observable.Walk(v, func(e observable.Element) bool {
		if !e.Enabled() {
			return false
		}
		a, ok := e.(observable.Valuer)
		if !ok {
			return true
		}
		if val, ok := a.Formatted(); ok {
			s.Attributes[strings.TrimPrefix(a.Path(), base)] = val
		}
		return true
	})
	return s
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
