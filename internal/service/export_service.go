package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ai-declaration-api/internal/models"
	appErrors "github.com/noah-isme/ai-declaration-api/pkg/errors"
	"github.com/noah-isme/ai-declaration-api/pkg/export"
)

type declarationLister interface {
	List(ctx context.Context) ([]models.Declaration, error)
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

var exportHeaders = []string{"ID", "Submitted At", "User", "Assignment", "AI Tool", "Usage Purpose", "AI Content", "Screenshot"}

// ExportService renders every declaration row into CSV or PDF.
type ExportService struct {
	declarations declarationLister
	logger       *zap.Logger
	now          func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(declarations declarationLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		declarations: declarations,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Export renders the full listing in the requested format.
func (s *ExportService) Export(ctx context.Context, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	rows, err := s.declarations.List(ctx)
	if err != nil {
		return nil, err
	}

	data, err := export.Render(format, buildDataset(rows))
	if err != nil {
		return nil, appErrors.Internal(err, "Failed to export declarations")
	}
	s.logger.Info("declarations exported", zap.String("format", string(format)), zap.Int("rows", len(rows)))

	return &ExportFile{
		Filename:    fmt.Sprintf("ai-declarations-%s.%s", s.now().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

func buildDataset(rows []models.Declaration) export.Dataset {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		screenshot := ""
		if row.ScreenshotPath != nil {
			screenshot = *row.ScreenshotPath
		}
		records = append(records, []string{
			strconv.FormatInt(row.ID, 10),
			row.CreatedAt.UTC().Format(time.RFC3339),
			row.UserName,
			row.AssignmentTitle,
			row.AITool,
			row.UsagePurpose,
			row.AIContent,
			screenshot,
		})
	}
	return export.Dataset{
		Title:   "AI Usage Declarations",
		Headers: exportHeaders,
		Rows:    records,
	}
}
