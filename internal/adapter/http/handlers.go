package http

import (
	"fmt"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

const (
	serviceName = "Weather Radar API"
	infoProduct = "MRMS Reflectivity at Lowest Altitude"

	// OriginHeader tells clients whether the body came from cache, upstream, or a stale fallback.
	OriginHeader = "X-Radar-Origin"
)

type errorResponse struct {
	Error string `json:"error"`
}

type infoResponse struct {
	Service         string `json:"service"`
	UpdateFrequency string `json:"update_frequency"`
	CacheDuration   string `json:"cache_duration"`
	domain.CacheStatus
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	res, err := s.radar.Latest(r.Context())
	if err != nil {
		s.logger.Error("latest radar request failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if !res.Found {
		s.logger.Warn("no radar data available", "cause", res.Cause)
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: "No radar data available"})
		return
	}
	if res.Origin == domain.OriginStale {
		s.logger.Warn("serving stale radar data", "cause", res.Cause, "timestamp", res.Collection.Metadata.Timestamp)
	}

	w.Header().Set(OriginHeader, string(res.Origin))
	sharedobs.WriteJSON(w, http.StatusOK, res.Collection)
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	status, err := s.radar.Status()
	if err != nil {
		s.logger.Error("radar info request failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	sharedobs.WriteJSON(w, http.StatusOK, infoResponse{
		Service:         infoProduct,
		UpdateFrequency: s.opts.UpdateFrequency,
		CacheDuration:   fmt.Sprintf("%d seconds", int(s.opts.CacheDuration.Seconds())),
		CacheStatus:     status,
	})
}
