package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holdfast/holdfast/internal/database"
	"github.com/holdfast/holdfast/internal/di"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/httpapi"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status        string                     `json:"status"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	CPUPercent    float64                    `json:"cpu_percent"`
	MemoryPercent float64                    `json:"memory_percent"`
	DiskPercent   float64                    `json:"disk_percent"`
	Databases     map[string]*database.Stats `json:"databases"`
	Subscribers   int                        `json:"event_subscribers"`
	Jobs          []string                   `json:"jobs"`
	PriceCache    string                     `json:"price_cache"`
	BackupEnabled bool                       `json:"backup_enabled"`
}

// SystemHandlers serves status and operations endpoints
type SystemHandlers struct {
	container *di.Container
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(container *di.Container, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		container: container,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// RegisterRoutes registers routes under /api/system
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.HandleSystemStatus)
	r.Post("/backup", h.HandleBackup)
	r.Post("/jobs/{name}", h.HandleRunJob)
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	c := h.container
	cpuPercent, memPercent := h.getSystemStats()

	resp := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		DiskPercent:   h.getDiskUsage(c.Config.DataDir),
		Databases:     make(map[string]*database.Stats),
		Subscribers:   c.EventBus.SubscriberCount(),
		PriceCache:    "sqlite",
		BackupEnabled: c.BackupService != nil,
	}
	if c.RedisClient != nil {
		resp.PriceCache = "redis"
	}

	for _, db := range []*database.DB{c.LedgerDB, c.ClientDataDB} {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			resp.Status = "degraded"
			continue
		}
		resp.Databases[db.Name()] = stats
	}

	if c.Scheduler != nil {
		resp.Jobs = c.Scheduler.Jobs()
		sort.Strings(resp.Jobs)
	}

	httpapi.WriteData(w, r, h.log, http.StatusOK, resp)
}

// HandleBackup handles POST /api/system/backup
func (h *SystemHandlers) HandleBackup(w http.ResponseWriter, r *http.Request) {
	if h.container.BackupService == nil {
		httpapi.WriteError(w, h.log, domain.NewInvalidOperationError("backup", "backups are not configured"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	info, err := h.container.BackupService.CreateAndUploadBackup(ctx)
	if err != nil {
		httpapi.WriteError(w, h.log, domain.NewUnavailableError("backup", err))
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusCreated, info)
}

// HandleRunJob handles POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.container.Scheduler == nil {
		httpapi.WriteError(w, h.log, domain.NewNotFoundError("run_job", "job %q not found", name))
		return
	}
	job, ok := h.container.Scheduler.Lookup(name)
	if !ok {
		httpapi.WriteError(w, h.log, domain.NewNotFoundError("run_job", "job %q not found", name))
		return
	}

	if err := h.container.Scheduler.RunNow(job); err != nil {
		httpapi.WriteError(w, h.log, err)
		return
	}
	httpapi.WriteData(w, r, h.log, http.StatusOK, map[string]string{"job": name, "status": "completed"})
}

// getSystemStats returns CPU and RAM usage percentages. CPU is sampled over
// 100ms so the call stays fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) getDiskUsage(path string) float64 {
	usage, err := disk.Usage(path)
	if err != nil {
		h.log.Warn().Err(err).Str("path", path).Msg("Failed to get disk usage")
		return 0
	}
	return usage.UsedPercent
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := s.container.LedgerDB.HealthCheck(ctx); err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	httpapi.WriteJSON(w, s.log, code, map[string]string{
		"status":  status,
		"service": "holdfast",
	})
}
