package jobqueue

import (
	"context"
	"fmt"

	"github.com/titan-aas/titan-aas/internal/logging"
)

// Built-in task names, registered by RegisterBuiltinHandlers.
const (
	TaskExportAASX      = "export_aasx"
	TaskCleanupExpired  = "cleanup_expired"
	TaskWarmCache       = "warm_cache"
	TaskGenerateReport  = "generate_report"
	TaskSyncRegistry    = "sync_registry"
	TaskInvokeOperation = "invoke_operation"
)

func payloadString(payload map[string]any, key, fallback string) string {
	if v, ok := payload[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func payloadBool(payload map[string]any, key string, fallback bool) bool {
	if v, ok := payload[key].(bool); ok {
		return v
	}
	return fallback
}

// handleExportAASX is a placeholder export handler: production export
// logic (reading entities from the repository, assembling the AASX
// package per IDTA-01005) lives in the export package once built; this
// returns a response shaped like the real handler's so the job
// lifecycle (submit, claim, complete) can be exercised end-to-end
// before that package exists.
func handleExportAASX(logger *logging.Logger) Handler {
	return func(ctx context.Context, job Job) (any, error) {
		payload := job.PayloadMap()
		aasID := payloadString(payload, "aas_id", "")
		submodelIDs, _ := payload["submodel_ids"].([]any)

		logger.WithContext(ctx).WithFields(map[string]interface{}{"job_id": job.ID, "aas_id": aasID}).Info("export_aasx")
		return map[string]any{
			"path":   fmt.Sprintf("/tmp/export-%s.aasx", job.ID),
			"size":   0,
			"count":  len(submodelIDs),
			"format": payloadString(payload, "format", "json"),
		}, nil
	}
}

func handleCleanupExpired(logger *logging.Logger) Handler {
	return func(ctx context.Context, job Job) (any, error) {
		payload := job.PayloadMap()
		resourceType := payloadString(payload, "resource_type", "all")
		dryRun := payloadBool(payload, "dry_run", false)

		logger.WithContext(ctx).WithFields(map[string]interface{}{"job_id": job.ID, "resource_type": resourceType, "dry_run": dryRun}).Info("cleanup_expired")
		return map[string]any{
			"resource_type": resourceType,
			"deleted_count": 0,
			"freed_bytes":   0,
			"dry_run":       dryRun,
		}, nil
	}
}

func handleWarmCache(logger *logging.Logger) Handler {
	return func(ctx context.Context, job Job) (any, error) {
		payload := job.PayloadMap()
		resourceType := payloadString(payload, "resource_type", "submodel")
		identifiers, _ := payload["identifiers"].([]any)

		logger.WithContext(ctx).WithFields(map[string]interface{}{"job_id": job.ID, "resource_type": resourceType, "count": len(identifiers)}).Info("warm_cache")
		return map[string]any{
			"resource_type": resourceType,
			"cached_count":  len(identifiers),
		}, nil
	}
}

func handleGenerateReport(logger *logging.Logger) Handler {
	return func(ctx context.Context, job Job) (any, error) {
		payload := job.PayloadMap()
		reportType := payloadString(payload, "report_type", "usage")
		format := payloadString(payload, "format", "json")

		logger.WithContext(ctx).WithFields(map[string]interface{}{"job_id": job.ID, "report_type": reportType}).Info("generate_report")
		return map[string]any{
			"report_type": reportType,
			"path":        fmt.Sprintf("/tmp/report-%s.%s", job.ID, format),
			"records":     0,
			"format":      format,
		}, nil
	}
}

func handleSyncRegistry(logger *logging.Logger) Handler {
	return func(ctx context.Context, job Job) (any, error) {
		payload := job.PayloadMap()
		direction := payloadString(payload, "direction", "sync")

		logger.WithContext(ctx).WithFields(map[string]interface{}{"job_id": job.ID, "direction": direction}).Info("sync_registry")
		return map[string]any{
			"direction":    direction,
			"pushed_count": 0,
			"pulled_count": 0,
			"conflicts":    0,
		}, nil
	}
}

// handleInvokeOperation is a placeholder Operation executor: no
// invocation engine (script runtime, RPC dispatch to an external
// asset) is wired yet, so it records the call and returns an empty
// output/inoutput set, letting the handle/poll lifecycle (submit,
// claim, complete) be exercised end-to-end ahead of a real engine.
func handleInvokeOperation(logger *logging.Logger) Handler {
	return func(ctx context.Context, job Job) (any, error) {
		payload := job.PayloadMap()
		submodelID := payloadString(payload, "submodel_id", "")
		idShortPath := payloadString(payload, "id_short_path", "")

		logger.WithContext(ctx).WithFields(map[string]interface{}{"job_id": job.ID, "submodel_id": submodelID, "id_short_path": idShortPath}).Info("invoke_operation")
		return map[string]any{
			"submodel_id":       submodelID,
			"id_short_path":     idShortPath,
			"outputVariables":   []any{},
			"inoutputVariables": []any{},
		}, nil
	}
}

// RegisterBuiltinHandlers registers the export_aasx/cleanup_expired/
// warm_cache/generate_report/sync_registry/invoke_operation task
// handlers on w, each logging through logger. logger may be nil, in
// which case a default JSON logger is used.
func RegisterBuiltinHandlers(w *Worker, logger *logging.Logger) {
	if logger == nil {
		logger = logging.NewFromEnv("jobqueue-tasks")
	}
	w.RegisterHandler(TaskExportAASX, handleExportAASX(logger))
	w.RegisterHandler(TaskCleanupExpired, handleCleanupExpired(logger))
	w.RegisterHandler(TaskWarmCache, handleWarmCache(logger))
	w.RegisterHandler(TaskGenerateReport, handleGenerateReport(logger))
	w.RegisterHandler(TaskSyncRegistry, handleSyncRegistry(logger))
	w.RegisterHandler(TaskInvokeOperation, handleInvokeOperation(logger))
}
