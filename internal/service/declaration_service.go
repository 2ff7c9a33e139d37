package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/ai-declaration-api/internal/dto"
	"github.com/noah-isme/ai-declaration-api/internal/models"
	appErrors "github.com/noah-isme/ai-declaration-api/pkg/errors"
)

type declarationStore interface {
	ReserveIDs(ctx context.Context, n int) ([]int64, error)
	Create(ctx context.Context, d *models.Declaration) error
	List(ctx context.Context) ([]models.Declaration, error)
}

type screenshotStorage interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

type listingCache interface {
	Rows(ctx context.Context) ([]models.Declaration, bool)
	Put(ctx context.Context, rows []models.Declaration)
	Invalidate(ctx context.Context)
}

// DeclarationServiceConfig holds upload limits and the public URL prefix of stored screenshots.
type DeclarationServiceConfig struct {
	MaxFileSize int64
	PublicPath  string
}

// DeclarationService validates submissions, stores screenshots and persists one row per tool.
type DeclarationService struct {
	repo      declarationStore
	storage   screenshotStorage
	cache     listingCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DeclarationServiceConfig
	now       func() time.Time

	// listingGen counts writes; a listing read that overlapped one is not cached.
	listingMu  sync.Mutex
	listingGen uint64
}

// NewDeclarationService constructs the service with defaults.
func NewDeclarationService(repo declarationStore, storage screenshotStorage, cache listingCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg DeclarationServiceConfig) *DeclarationService {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(formFieldName)
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewListingCache(nil, nil, 0, logger)
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxScreenshotSize
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = "/uploads"
	}
	cfg.PublicPath = "/" + strings.Trim(cfg.PublicPath, "/")
	return &DeclarationService{
		repo:      repo,
		storage:   storage,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores the optional screenshot, validates the form and inserts one row
// per tool. The screenshot is removed again when the form is rejected. Rows
// already inserted stay committed when a sibling insert fails.
func (s *DeclarationService) Submit(ctx context.Context, form dto.DeclarationForm, upload *ScreenshotUpload) (*dto.CreateDeclarationResult, error) {
	now := s.now()

	var (
		storedKey      string
		screenshotPath *string
	)
	if upload != nil {
		key, err := s.storeScreenshot(ctx, upload, now)
		if err != nil {
			s.metrics.RecordSubmission("rejected", 0)
			return nil, err
		}
		storedKey = key
		path := s.cfg.PublicPath + "/" + key
		screenshotPath = &path
	}

	req, err := s.validate(form)
	if err != nil {
		s.discardScreenshot(storedKey)
		s.metrics.RecordSubmission("rejected", 0)
		return nil, err
	}

	ids, err := s.repo.ReserveIDs(ctx, len(req.AITools))
	if err != nil {
		s.discardScreenshot(storedKey)
		s.metrics.RecordSubmission("failed", 0)
		s.logger.Error("declaration id reservation failed", zap.Error(err))
		return nil, appErrors.Internal(err, "Failed to create declaration")
	}

	submissionID := uuid.NewString()
	rows := make([]*models.Declaration, len(req.AITools))
	for i, tool := range req.AITools {
		sid := submissionID
		rows[i] = &models.Declaration{
			ID:              ids[i],
			SubmissionID:    &sid,
			UserName:        req.UserName,
			AssignmentTitle: req.AssignmentTitle,
			AITool:          tool,
			UsagePurpose:    req.UsagePurpose,
			AIContent:       req.AIContent,
			ScreenshotPath:  screenshotPath,
			CreatedAt:       now,
		}
	}

	err = s.insertAll(ctx, rows)
	// Committed siblings stay on failure, so the listing is stale either way.
	s.invalidateListing(ctx)
	if err != nil {
		s.metrics.RecordSubmission("failed", 0)
		s.logger.Error("declaration insert failed",
			zap.String("submission_id", submissionID),
			zap.Int("tools", len(rows)),
			zap.Error(err),
		)
		return nil, appErrors.Internal(err, "Failed to create declaration")
	}

	s.metrics.RecordSubmission("created", len(rows))
	s.logger.Info("declarations created",
		zap.String("submission_id", submissionID),
		zap.String("assignment_title", req.AssignmentTitle),
		zap.Int("count", len(rows)),
		zap.Bool("screenshot", screenshotPath != nil),
	)

	return &dto.CreateDeclarationResult{
		Count:          len(rows),
		SubmissionID:   submissionID,
		ScreenshotPath: screenshotPath,
	}, nil
}

// List returns every row newest first.
func (s *DeclarationService) List(ctx context.Context) ([]models.Declaration, error) {
	if cached, ok := s.cache.Rows(ctx); ok {
		return cached, nil
	}

	gen := s.listingGeneration()
	start := time.Now()
	rows, err := s.repo.List(ctx)
	s.metrics.ObserveDBQuery("declarations_list", time.Since(start))
	if err != nil {
		s.logger.Error("declaration list failed", zap.Error(err))
		return nil, appErrors.Internal(err, "Failed to fetch declarations")
	}

	s.putListing(ctx, gen, rows)
	return rows, nil
}

// Groups returns the listing reassembled into submissions.
func (s *DeclarationService) Groups(ctx context.Context) ([]models.DeclarationGroup, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return GroupDeclarations(rows), nil
}

// insertAll issues every insert concurrently and waits for all of them.
// Siblings are not cancelled when one fails. Listing order among siblings
// follows the reserved ids, not commit order.
func (s *DeclarationService) insertAll(ctx context.Context, rows []*models.Declaration) error {
	var g errgroup.Group
	for _, row := range rows {
		row := row
		g.Go(func() error {
			start := time.Now()
			err := s.repo.Create(ctx, row)
			s.metrics.ObserveDBQuery("declarations_insert", time.Since(start))
			if err != nil {
				return fmt.Errorf("insert tool %q: %w", row.AITool, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *DeclarationService) listingGeneration() uint64 {
	s.listingMu.Lock()
	defer s.listingMu.Unlock()
	return s.listingGen
}

// putListing caches rows read at generation gen unless a write has landed since.
func (s *DeclarationService) putListing(ctx context.Context, gen uint64, rows []models.Declaration) {
	s.listingMu.Lock()
	defer s.listingMu.Unlock()
	if gen != s.listingGen {
		return
	}
	s.cache.Put(ctx, rows)
}

func (s *DeclarationService) invalidateListing(ctx context.Context) {
	s.listingMu.Lock()
	defer s.listingMu.Unlock()
	s.listingGen++
	s.cache.Invalidate(ctx)
}

func (s *DeclarationService) storeScreenshot(ctx context.Context, upload *ScreenshotUpload, now time.Time) (string, error) {
	if s.storage == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "Screenshot storage not configured")
	}
	mimeType, err := checkScreenshot(upload, s.cfg.MaxFileSize)
	if err != nil {
		s.metrics.RecordScreenshot("rejected")
		return "", err
	}
	key := screenshotKey(upload.Filename, now)
	if err := s.storage.Save(ctx, key, upload.Content, upload.Size, mimeType); err != nil {
		s.metrics.RecordScreenshot("failed")
		return "", appErrors.Internal(err, "Failed to store screenshot")
	}
	s.metrics.RecordScreenshot("stored")
	return key, nil
}

// discardScreenshot uses a detached context so cleanup survives a cancelled request.
func (s *DeclarationService) discardScreenshot(key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove rejected screenshot", zap.String("key", key), zap.Error(err))
		return
	}
	s.metrics.RecordScreenshot("discarded")
}

func (s *DeclarationService) validate(form dto.DeclarationForm) (dto.CreateDeclarationRequest, error) {
	req, err := form.ToRequest()
	if err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Invalid AI tools format")
	}
	if err := s.validator.Struct(req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	return req, nil
}
