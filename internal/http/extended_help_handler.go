package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"carezone/internal/models"
	"carezone/internal/service"

	"go.uber.org/zap"
)

// ExtendedHelpHandler 扩展求助案件查询 / 导出
type ExtendedHelpHandler struct {
	reportService service.ReportService
	logger        *zap.Logger
	now           func() time.Time
}

// NewExtendedHelpHandler 创建 ExtendedHelpHandler
func NewExtendedHelpHandler(reportService service.ReportService, logger *zap.Logger) *ExtendedHelpHandler {
	return &ExtendedHelpHandler{
		reportService: reportService,
		logger:        logger,
		now:           time.Now,
	}
}

// GetCase 查询单个案件
func (h *ExtendedHelpHandler) GetCase(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid extended help id")
		return
	}

	c, err := h.reportService.GetCase(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "GetCase", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(c))
}

// Export 导出案件：?users_id=&takecare_id=&status=&start_time=&end_time=
func (h *ExtendedHelpHandler) Export(w http.ResponseWriter, r *http.Request) {
	req, err := parseExportQuery(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	data, err := h.reportService.ExportCases(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "ExportCases", err)
		return
	}

	filename := fmt.Sprintf("extended-help-%s.xlsx", h.now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseExportQuery(r *http.Request) (service.ExportCasesRequest, error) {
	var req service.ExportCasesRequest
	var err error

	if req.UsersID, err = queryInt64(r, "users_id"); err != nil {
		return req, err
	}
	if req.TakecareID, err = queryInt64(r, "takecare_id"); err != nil {
		return req, err
	}
	if req.StartTime, err = queryTime(r, "start_time"); err != nil {
		return req, err
	}
	if req.EndTime, err = queryTime(r, "end_time"); err != nil {
		return req, err
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.CaseStatus(raw)
		req.Status = &status
	}
	return req, nil
}
