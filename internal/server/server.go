// Package server exposes dataset lookups over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/riandyrn/otelchi"
	"go.uber.org/zap"

	"github.com/sells-group/feature-query/internal/export"
	"github.com/sells-group/feature-query/internal/lookup"
	"github.com/sells-group/feature-query/pkg/featureservice"
)

const defaultWKID = 4326

// Options configures the HTTP handler.
type Options struct {
	AllowedOrigins []string
	// Token is forwarded to the feature services when a request has none.
	Token string
}

type handler struct {
	svc  *lookup.Service
	opts Options
}

// New builds the router.
func New(svc *lookup.Service, opts Options) http.Handler {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	h := &handler{svc: svc, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(otelchi.Middleware("feature-query", otelchi.WithChiRoutes(r)))

	r.Get("/health", h.health)
	r.Get("/datasets", h.listDatasets)
	r.Get("/datasets/{name}", h.lookupDataset)
	r.Get("/profile", h.profile)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type datasetInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	ServiceURL   string   `json:"service_url"`
	Shape        string   `json:"shape"`
	SupportsFIPS bool     `json:"supports_fips"`
	SupportsHUC  bool     `json:"supports_huc"`
	OutFields    []string `json:"out_fields"`
}

func (h *handler) listDatasets(w http.ResponseWriter, _ *http.Request) {
	all := h.svc.Catalog().All()
	out := make([]datasetInfo, 0, len(all))
	for _, d := range all {
		out = append(out, datasetInfo{
			Name:         d.Name,
			Description:  d.Description,
			ServiceURL:   d.ServiceURL,
			Shape:        d.Shape.String(),
			SupportsFIPS: d.SupportsFIPS(),
			SupportsHUC:  d.SupportsHUC(),
			OutFields:    d.OutFields,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) lookupDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, err := h.svc.Catalog().Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	loc, err := h.location(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	format := export.JSON
	if f := r.URL.Query().Get("format"); f != "" {
		format, err = export.ParseFormat(f)
		if err != nil || format == export.Shapefile {
			writeError(w, http.StatusBadRequest, "unsupported format "+strconv.Quote(f))
			return
		}
	}

	records, err := h.svc.LookupDataset(r.Context(), d, loc)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}

	switch format {
	case export.GeoJSON:
		w.Header().Set("Content-Type", "application/geo+json")
	case export.XLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(d.Name+".xlsx"))
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	if err := export.Write(w, format, records); err != nil {
		zap.L().Error("server: write response", zap.String("dataset", d.Name), zap.Error(err))
	}
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	loc, err := h.location(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var names []string
	if raw := r.URL.Query().Get("datasets"); raw != "" {
		for _, n := range strings.Split(raw, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}

	results, err := h.svc.Profile(r.Context(), names, loc)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// location reads fips, huc or x/y/wkid plus token from the query string.
func (h *handler) location(r *http.Request) (lookup.Location, error) {
	q := r.URL.Query()
	loc := lookup.Location{
		FIPS:  strings.TrimSpace(q.Get("fips")),
		HUC:   strings.TrimSpace(q.Get("huc")),
		Token: q.Get("token"),
	}
	if loc.Token == "" {
		loc.Token = h.opts.Token
	}

	xs, ys := q.Get("x"), q.Get("y")
	if xs != "" || ys != "" {
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return lookup.Location{}, errors.New("invalid x coordinate")
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return lookup.Location{}, errors.New("invalid y coordinate")
		}
		wkid := defaultWKID
		if ws := q.Get("wkid"); ws != "" {
			wkid, err = strconv.Atoi(ws)
			if err != nil || wkid <= 0 {
				return lookup.Location{}, errors.New("invalid wkid")
			}
		}
		loc.Point = &featureservice.Point{X: x, Y: y, SpatialRefWKID: wkid}
	}

	if err := loc.Validate(); err != nil {
		return lookup.Location{}, err
	}
	return loc, nil
}

// writeLookupError maps lookup failures to status codes: caller mistakes are
// 400, failures reported by or on the way to the feature service are 502.
func (h *handler) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ie *lookup.InputError
		se *featureservice.ServiceError
		te *featureservice.TransportError
		de *featureservice.DecodeError
	)
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.As(err, &se):
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": se})
	case errors.As(err, &te), errors.As(err, &de):
		zap.L().Warn("server: upstream failure", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		zap.L().Error("server: lookup failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}
