package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ai-declaration-api/internal/dto"
	"github.com/noah-isme/ai-declaration-api/internal/models"
	appErrors "github.com/noah-isme/ai-declaration-api/pkg/errors"
)

type declarationRepoStub struct {
	mu         sync.Mutex
	rows       []models.Declaration
	nextID     int64
	failTool   string
	reserveErr error
	listErr    error
	lists      int
	slowTool   string
	afterList  func()
}

func (r *declarationRepoStub) ReserveIDs(ctx context.Context, n int) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reserveErr != nil {
		return nil, r.reserveErr
	}
	ids := make([]int64, n)
	for i := range ids {
		r.nextID++
		ids[i] = r.nextID
	}
	return ids, nil
}

func (r *declarationRepoStub) Create(ctx context.Context, d *models.Declaration) error {
	if d.AITool == r.slowTool {
		time.Sleep(20 * time.Millisecond)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.AITool == r.failTool {
		return errors.New("insert failed")
	}
	if d.ID == 0 {
		r.nextID++
		d.ID = r.nextID
	}
	r.rows = append(r.rows, *d)
	return nil
}

func (r *declarationRepoStub) List(ctx context.Context) ([]models.Declaration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.Declaration, len(r.rows))
	copy(out, r.rows)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if r.afterList != nil {
		r.mu.Unlock()
		r.afterList()
		r.mu.Lock()
	}
	return out, nil
}

type screenshotStorageStub struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func newScreenshotStorageStub() *screenshotStorageStub {
	return &screenshotStorageStub{saved: make(map[string][]byte)}
}

func (s *screenshotStorageStub) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[key] = data
	return nil
}

func (s *screenshotStorageStub) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type cacheStub struct {
	mu          sync.Mutex
	rows        []models.Declaration
	cached      bool
	invalidated int
}

func (c *cacheStub) Rows(ctx context.Context) ([]models.Declaration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows, c.cached
}

func (c *cacheStub) Put(ctx context.Context, rows []models.Declaration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = rows
	c.cached = true
}

func (c *cacheStub) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.rows = nil
	c.cached = false
}

func validForm() dto.DeclarationForm {
	return dto.DeclarationForm{
		UserName:        "Alice",
		AssignmentTitle: "Essay 1",
		UsagePurpose:    "brainstorming",
		AIContent:       "outline",
		AITools:         `["ChatGPT","Grammarly"]`,
	}
}

func newDeclarationServiceForTest(repo *declarationRepoStub, store *screenshotStorageStub) *DeclarationService {
	return NewDeclarationService(repo, store, nil, NewMetricsService(), nil, nil, DeclarationServiceConfig{PublicPath: "/uploads/"})
}

func TestDeclarationServiceSubmitCreatesRowPerTool(t *testing.T) {
	repo := &declarationRepoStub{}
	svc := newDeclarationServiceForTest(repo, newScreenshotStorageStub())

	result, err := svc.Submit(context.Background(), validForm(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Nil(t, result.ScreenshotPath)
	require.NotEmpty(t, result.SubmissionID)

	rows, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	tools := []string{rows[0].AITool, rows[1].AITool}
	assert.ElementsMatch(t, []string{"ChatGPT", "Grammarly"}, tools)
	for _, row := range rows {
		assert.Equal(t, "Alice", row.UserName)
		assert.Equal(t, "Essay 1", row.AssignmentTitle)
		assert.Equal(t, "brainstorming", row.UsagePurpose)
		assert.Equal(t, "outline", row.AIContent)
		assert.Nil(t, row.ScreenshotPath)
		assert.Equal(t, result.SubmissionID, *row.SubmissionID)
		assert.Equal(t, rows[0].CreatedAt, row.CreatedAt)
	}

	groups, err := svc.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Essay 1", groups[0].AssignmentTitle)
	assert.Equal(t, "Alice", groups[0].UserName)
	assert.Len(t, groups[0].AITools, 2)
}

func TestDeclarationServiceSubmitKeepsDuplicatesAndCustomTool(t *testing.T) {
	repo := &declarationRepoStub{}
	svc := newDeclarationServiceForTest(repo, newScreenshotStorageStub())
	form := validForm()
	form.AITools = `["ChatGPT"]`
	form.CustomTool = " ChatGPT "

	result, err := svc.Submit(context.Background(), form, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
}

func TestDeclarationServiceSubmitValidation(t *testing.T) {
	cases := map[string]struct {
		mutate  func(*dto.DeclarationForm)
		message string
	}{
		"empty name":      {func(f *dto.DeclarationForm) { f.UserName = "   " }, "User name is required"},
		"empty title":     {func(f *dto.DeclarationForm) { f.AssignmentTitle = "" }, "Assignment title is required"},
		"empty purpose":   {func(f *dto.DeclarationForm) { f.UsagePurpose = "\t" }, "Usage purpose is required"},
		"empty content":   {func(f *dto.DeclarationForm) { f.AIContent = "" }, "AI content is required"},
		"no tools":        {func(f *dto.DeclarationForm) { f.AITools = "[]"; f.CustomTool = " " }, "At least one AI tool must be selected"},
		"missing tools":   {func(f *dto.DeclarationForm) { f.AITools = "" }, "At least one AI tool must be selected"},
		"malformed tools": {func(f *dto.DeclarationForm) { f.AITools = "ChatGPT,Grammarly" }, "Invalid AI tools format"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &declarationRepoStub{}
			svc := newDeclarationServiceForTest(repo, newScreenshotStorageStub())
			form := validForm()
			tc.mutate(&form)

			_, err := svc.Submit(context.Background(), form, nil)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, http.StatusBadRequest, appErr.Status)
			assert.Equal(t, tc.message, appErr.Message)
			assert.Empty(t, repo.rows)
		})
	}
}

func TestDeclarationServiceSubmitStoresScreenshot(t *testing.T) {
	repo := &declarationRepoStub{}
	store := newScreenshotStorageStub()
	svc := newDeclarationServiceForTest(repo, store)

	result, err := svc.Submit(context.Background(), validForm(), pngUpload("proof.png", "image/png"))
	require.NoError(t, err)
	require.NotNil(t, result.ScreenshotPath)
	assert.True(t, strings.HasPrefix(*result.ScreenshotPath, "/uploads/screenshot-"))
	assert.True(t, strings.HasSuffix(*result.ScreenshotPath, ".png"))
	require.Len(t, store.saved, 1)
	for key, data := range store.saved {
		assert.Equal(t, "/uploads/"+key, *result.ScreenshotPath)
		assert.Equal(t, pngHeader, data)
	}
	for _, row := range repo.rows {
		assert.Equal(t, *result.ScreenshotPath, *row.ScreenshotPath)
	}
}

func TestDeclarationServiceSubmitRemovesScreenshotOnValidationFailure(t *testing.T) {
	repo := &declarationRepoStub{}
	store := newScreenshotStorageStub()
	svc := newDeclarationServiceForTest(repo, store)
	form := validForm()
	form.UserName = ""

	_, err := svc.Submit(context.Background(), form, pngUpload("proof.png", "image/png"))
	require.Error(t, err)
	assert.Empty(t, store.saved)
	assert.Len(t, store.deleted, 1)
	assert.Empty(t, repo.rows)
}

func TestDeclarationServiceSubmitRejectsBadFileWithoutStoring(t *testing.T) {
	repo := &declarationRepoStub{}
	store := newScreenshotStorageStub()
	svc := newDeclarationServiceForTest(repo, store)
	text := []byte("plain text pretending to be an image")

	_, err := svc.Submit(context.Background(), validForm(), &ScreenshotUpload{
		Filename: "fake.png",
		Size:     int64(len(text)),
		MimeType: "image/png",
		Content:  bytes.NewReader(text),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, store.saved)
	assert.Empty(t, repo.rows)
}

func TestDeclarationServiceSubmitRejectsOversizedFile(t *testing.T) {
	repo := &declarationRepoStub{}
	store := newScreenshotStorageStub()
	svc := newDeclarationServiceForTest(repo, store)
	upload := pngUpload("big.png", "image/png")
	upload.Size = DefaultMaxScreenshotSize + 1

	_, err := svc.Submit(context.Background(), validForm(), upload)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "File too large")
	assert.Empty(t, store.saved)
	assert.Empty(t, repo.rows)
}

func TestDeclarationServiceSubmitStorageFailure(t *testing.T) {
	store := newScreenshotStorageStub()
	store.saveErr = errors.New("disk full")
	svc := newDeclarationServiceForTest(&declarationRepoStub{}, store)

	_, err := svc.Submit(context.Background(), validForm(), pngUpload("proof.png", "image/png"))
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}

func TestDeclarationServiceSubmitPartialInsertIsNotRolledBack(t *testing.T) {
	repo := &declarationRepoStub{failTool: "Grammarly"}
	svc := newDeclarationServiceForTest(repo, newScreenshotStorageStub())
	form := validForm()
	form.AITools = `["ChatGPT","Grammarly","Claude"]`

	_, err := svc.Submit(context.Background(), form, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "Failed to create declaration", appErr.Message)
	assert.Contains(t, appErr.Detail(), "Grammarly")
	assert.Len(t, repo.rows, 2)
}

func TestDeclarationServiceListError(t *testing.T) {
	repo := &declarationRepoStub{listErr: errors.New("connection refused")}
	svc := newDeclarationServiceForTest(repo, newScreenshotStorageStub())

	_, err := svc.List(context.Background())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "Failed to fetch declarations", appErr.Message)
	assert.Equal(t, "connection refused", appErr.Detail())

	_, err = svc.Groups(context.Background())
	require.Error(t, err)
}

func TestDeclarationServiceListUsesCacheAndInvalidates(t *testing.T) {
	repo := &declarationRepoStub{}
	cache := &cacheStub{}
	svc := NewDeclarationService(repo, newScreenshotStorageStub(), cache, nil, nil, nil, DeclarationServiceConfig{})

	_, err := svc.List(context.Background())
	require.NoError(t, err)
	_, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)

	_, err = svc.Submit(context.Background(), validForm(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)

	rows, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, repo.lists)
}

func TestDeclarationServiceResubmissionCreatesNewRows(t *testing.T) {
	repo := &declarationRepoStub{}
	svc := newDeclarationServiceForTest(repo, newScreenshotStorageStub())

	first, err := svc.Submit(context.Background(), validForm(), nil)
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), validForm(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.SubmissionID, second.SubmissionID)

	groups, err := svc.Groups(context.Background())
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestDeclarationServiceSubmitKeepsSelectionOrder(t *testing.T) {
	repo := &declarationRepoStub{slowTool: "ChatGPT"}
	svc := newDeclarationServiceForTest(repo, newScreenshotStorageStub())

	_, err := svc.Submit(context.Background(), validForm(), nil)
	require.NoError(t, err)
	require.Len(t, repo.rows, 2)
	assert.Equal(t, "Grammarly", repo.rows[0].AITool)

	groups, err := svc.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"ChatGPT", "Grammarly"}, groups[0].AITools)
}

func TestDeclarationServiceSubmitReserveFailure(t *testing.T) {
	repo := &declarationRepoStub{reserveErr: errors.New("sequence unavailable")}
	store := newScreenshotStorageStub()
	svc := newDeclarationServiceForTest(repo, store)

	_, err := svc.Submit(context.Background(), validForm(), pngUpload("proof.png", "image/png"))
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
	assert.Empty(t, repo.rows)
	assert.Empty(t, store.saved)
	assert.Len(t, store.deleted, 1)
}

func TestDeclarationServicePartialInsertInvalidatesListing(t *testing.T) {
	repo := &declarationRepoStub{failTool: "Grammarly"}
	cache := &cacheStub{}
	svc := NewDeclarationService(repo, newScreenshotStorageStub(), cache, nil, nil, nil, DeclarationServiceConfig{})

	rows, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, rows)
	require.True(t, cache.cached)

	_, err = svc.Submit(context.Background(), validForm(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, cache.invalidated)

	rows, err = svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ChatGPT", rows[0].AITool)
}

func TestDeclarationServiceListSkipsCachingReadThatOverlapsWrite(t *testing.T) {
	listed := make(chan struct{})
	release := make(chan struct{})
	repo := &declarationRepoStub{}
	repo.afterList = func() {
		repo.afterList = nil
		close(listed)
		<-release
	}
	cache := &cacheStub{}
	svc := NewDeclarationService(repo, newScreenshotStorageStub(), cache, nil, nil, nil, DeclarationServiceConfig{})

	type listResult struct {
		rows []models.Declaration
		err  error
	}
	done := make(chan listResult, 1)
	go func() {
		rows, err := svc.List(context.Background())
		done <- listResult{rows, err}
	}()

	<-listed
	_, err := svc.Submit(context.Background(), validForm(), nil)
	require.NoError(t, err)
	close(release)

	stale := <-done
	require.NoError(t, stale.err)
	assert.Empty(t, stale.rows)
	assert.False(t, cache.cached)

	rows, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.True(t, cache.cached)
}
