package httpapi

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// healthHandlers implements liveness/readiness probes and the IDTA
// self-description endpoint.
type healthHandlers struct {
	deps Deps
}

type livezResponse struct {
	Status string `json:"status"`
}

func (h *healthHandlers) live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, livezResponse{Status: "ok"})
}

type readyzResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (h *healthHandlers) ready(w http.ResponseWriter, r *http.Request) {
	if h.deps.Readyz != nil {
		if err := h.deps.Readyz(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Status: "not_ready", Reason: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, readyzResponse{Status: "ready"})
}

type combinedHealthResponse struct {
	Status      string  `json:"status"`
	Version     string  `json:"version"`
	UptimeSec   int64   `json:"uptimeSeconds"`
	CPUPercent  float64 `json:"cpuPercent,omitempty"`
	MemPercent  float64 `json:"memPercent,omitempty"`
}

func (h *healthHandlers) combined(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	code := http.StatusOK
	if h.deps.Readyz != nil {
		if err := h.deps.Readyz(); err != nil {
			status = "not_ready"
			code = http.StatusServiceUnavailable
		}
	}
	uptime := int64(0)
	if !h.deps.Started.IsZero() {
		uptime = int64(time.Since(h.deps.Started).Seconds())
	}

	resp := combinedHealthResponse{Status: status, Version: h.deps.Version, UptimeSec: uptime}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		resp.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.MemPercent = vm.UsedPercent
	}
	writeJSON(w, code, resp)
}

// profile is the sole IDTA API profile this runtime implements: the
// full CRUD/discovery/element-navigation surface against a repository
// it owns directly, rather than a read-only aggregator.
const profile = "https://admin-shell.io/aas/API/3/0/AssetAdministrationShellRepositoryServiceSpecification/SSP-001"

type descriptionResponse struct {
	Profiles []string `json:"profiles"`
}

func (h *healthHandlers) description(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, descriptionResponse{Profiles: []string{profile}})
}
