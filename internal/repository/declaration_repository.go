package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ai-declaration-api/internal/models"
)

const declarationColumns = `id, submission_id, user_name, assignment_title, ai_tool,
       usage_purpose, ai_content, screenshot_path, created_at`

// DeclarationRepository handles ai_declarations persistence.
type DeclarationRepository struct {
	db *sqlx.DB
}

// NewDeclarationRepository constructs the repository.
func NewDeclarationRepository(db *sqlx.DB) *DeclarationRepository {
	return &DeclarationRepository{db: db}
}

// ReserveIDs draws n ids from the table sequence in ascending order. Rows
// created with these ids list in that order regardless of which insert
// commits first.
func (r *DeclarationRepository) ReserveIDs(ctx context.Context, n int) ([]int64, error) {
	const query = `SELECT nextval(pg_get_serial_sequence('ai_declarations', 'id')) FROM generate_series(1, $1)`
	ids := make([]int64, 0, n)
	if err := r.db.SelectContext(ctx, &ids, query, n); err != nil {
		return nil, fmt.Errorf("reserve declaration ids: %w", err)
	}
	if len(ids) != n {
		return nil, fmt.Errorf("reserve declaration ids: got %d of %d", len(ids), n)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Create inserts one row. A preset ID (see ReserveIDs) is written as is,
// otherwise the generated id is filled in. CreatedAt is kept when already set
// so sibling rows of a submission share one timestamp.
func (r *DeclarationRepository) Create(ctx context.Context, d *models.Declaration) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	args := []interface{}{
		d.SubmissionID,
		d.UserName,
		d.AssignmentTitle,
		d.AITool,
		d.UsagePurpose,
		d.AIContent,
		d.ScreenshotPath,
		d.CreatedAt,
	}
	if d.ID != 0 {
		const query = `INSERT INTO ai_declarations
	(submission_id, user_name, assignment_title, ai_tool, usage_purpose, ai_content, screenshot_path, created_at, id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		if _, err := r.db.ExecContext(ctx, query, append(args, d.ID)...); err != nil {
			return fmt.Errorf("create declaration: %w", err)
		}
		return nil
	}

	const query = `INSERT INTO ai_declarations
	(submission_id, user_name, assignment_title, ai_tool, usage_purpose, ai_content, screenshot_path, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&d.ID); err != nil {
		return fmt.Errorf("create declaration: %w", err)
	}
	return nil
}

// List returns every row, newest first. Ties keep insertion order.
func (r *DeclarationRepository) List(ctx context.Context) ([]models.Declaration, error) {
	query := `SELECT ` + declarationColumns + ` FROM ai_declarations ORDER BY created_at DESC, id ASC`
	records := make([]models.Declaration, 0)
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list declarations: %w", err)
	}
	return records, nil
}

// Ping checks database connectivity for readiness probes.
func (r *DeclarationRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
