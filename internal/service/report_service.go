package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"carezone/internal/models"
	"carezone/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// 单次导出最多行数
const maxExportRows = 10000

// CaseExportHeader 案件导出表头
var CaseExportHeader = []string{
	"Case ID",
	"Users ID",
	"Takecare ID",
	"Status",
	"Reason",
	"Created At",
	"Resend Count",
	"Received By",
	"Received At",
	"Closed By",
	"Closed At",
	"Safezone Latitude",
	"Safezone Longitude",
}

// ReportService 案件报表接口
type ReportService interface {
	// 获取单个案件
	GetCase(ctx context.Context, extenID int64) (*models.ExtendedHelp, error)

	// 按条件导出案件为 xlsx
	ExportCases(ctx context.Context, req ExportCasesRequest) ([]byte, error)
}

type reportService struct {
	repo   repository.ExtendedHelpRepository
	logger *zap.Logger
}

// NewReportService 创建 ReportService 实例
func NewReportService(repo repository.ExtendedHelpRepository, logger *zap.Logger) ReportService {
	return &reportService{
		repo:   repo,
		logger: logger,
	}
}

// ExportCasesRequest 导出请求
type ExportCasesRequest struct {
	UsersID    *int64
	TakecareID *int64
	Status     *models.CaseStatus
	StartTime  *time.Time
	EndTime    *time.Time
}

func (s *reportService) GetCase(ctx context.Context, extenID int64) (*models.ExtendedHelp, error) {
	if extenID <= 0 {
		return nil, validationError("exten_id must be positive")
	}
	c, err := s.repo.GetCase(ctx, extenID)
	if err != nil {
		return nil, lookupError("case", err)
	}
	return c, nil
}

func (s *reportService) ExportCases(ctx context.Context, req ExportCasesRequest) ([]byte, error) {
	if req.StartTime != nil && req.EndTime != nil && req.EndTime.Before(*req.StartTime) {
		return nil, validationError("end time is before start time")
	}
	if req.Status != nil {
		switch *req.Status {
		case models.CaseStatusCreated, models.CaseStatusResent, models.CaseStatusReceived, models.CaseStatusClosed:
		default:
			return nil, validationError("unknown case status %q", *req.Status)
		}
	}

	cases, err := s.repo.ListCases(ctx, repository.CaseFilter{
		UsersID:    req.UsersID,
		TakecareID: req.TakecareID,
		Status:     req.Status,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Limit:      maxExportRows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	data, err := generateCaseExcel(cases)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cases exported", zap.Int("row_count", len(cases)))
	return data, nil
}

// generateCaseExcel 生成案件 Excel 文件
func generateCaseExcel(cases []*models.ExtendedHelp) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前文件必须保持打开

	sheetName := "Extended Help"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FDE2E2"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 表头
	for col, header := range CaseExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "M", 18); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	// 数据行从第 2 行开始
	for i, c := range cases {
		row := []any{
			c.ExtenID,
			c.UsersID,
			c.TakecareID,
			string(c.Status),
			c.Reason,
			formatTime(&c.CreatedAt),
			c.ResendCount,
			formatID(c.ReceivedUserID),
			formatTime(c.ReceivedAt),
			formatID(c.ClosedUserID),
			formatTime(c.ClosedAt),
			c.SafezoneLatitude,
			c.SafezoneLongitude,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%d", *id)
}
