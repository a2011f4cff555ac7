package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"carezone/internal/models"
	"carezone/internal/repository"
)

func TestExportCases_WritesWorkbook(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	c := &models.ExtendedHelp{UsersID: 1, TakecareID: 2, Status: models.CaseStatusCreated, Reason: models.ReasonFall, CreatedAt: created}
	require.NoError(t, store.CreateCase(ctx, c))
	_, err := store.MarkClosed(ctx, c.ExtenID, 10, created.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.CreateCase(ctx, &models.ExtendedHelp{UsersID: 3, TakecareID: 4, Status: models.CaseStatusCreated, CreatedAt: created}))

	svc := NewReportService(store, zap.NewNop())
	usersID := int64(1)
	data, err := svc.ExportCases(ctx, ExportCasesRequest{UsersID: &usersID})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Extended Help")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, CaseExportHeader, rows[0])
	assert.Equal(t, "closed", rows[1][3])
	assert.Equal(t, "fall", rows[1][4])
	assert.Equal(t, "2026-03-01 09:00:00", rows[1][5])
	assert.Equal(t, "10", rows[1][9])
	assert.Equal(t, "2026-03-01 10:00:00", rows[1][10])
}

func TestExportCases_Validation(t *testing.T) {
	svc := NewReportService(repository.NewMemoryStore(), zap.NewNop())
	start := time.Now()
	end := start.Add(-time.Hour)

	_, err := svc.ExportCases(context.Background(), ExportCasesRequest{StartTime: &start, EndTime: &end})
	assert.True(t, errors.Is(err, ErrValidation))

	status := models.CaseStatus("pending")
	_, err = svc.ExportCases(context.Background(), ExportCasesRequest{Status: &status})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestReportGetCase_NotFound(t *testing.T) {
	svc := NewReportService(repository.NewMemoryStore(), zap.NewNop())

	_, err := svc.GetCase(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}
