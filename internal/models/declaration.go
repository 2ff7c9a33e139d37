package models

import (
	"strings"
	"time"
)

// Declaration is one persisted row: a single AI tool named in one submission.
type Declaration struct {
	ID              int64     `db:"id" json:"id"`
	SubmissionID    *string   `db:"submission_id" json:"submission_id,omitempty"`
	UserName        string    `db:"user_name" json:"user_name"`
	AssignmentTitle string    `db:"assignment_title" json:"assignment_title"`
	AITool          string    `db:"ai_tool" json:"ai_tool"`
	UsagePurpose    string    `db:"usage_purpose" json:"usage_purpose"`
	AIContent       string    `db:"ai_content" json:"ai_content"`
	ScreenshotPath  *string   `db:"screenshot_path" json:"screenshot_path"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// GroupKey identifies the submission a row belongs to. Rows written before
// submission ids existed fall back to name, title and timestamp.
func (d Declaration) GroupKey() string {
	if d.SubmissionID != nil && *d.SubmissionID != "" {
		return "submission:" + *d.SubmissionID
	}
	var b strings.Builder
	b.WriteString("legacy:")
	b.WriteString(d.UserName)
	b.WriteString(d.AssignmentTitle)
	b.WriteString(d.CreatedAt.UTC().Format(time.RFC3339Nano))
	return b.String()
}

// DeclarationGroup reassembles the rows of one submission for display.
type DeclarationGroup struct {
	Key             string    `json:"key"`
	SubmissionID    *string   `json:"submission_id,omitempty"`
	UserName        string    `json:"user_name"`
	AssignmentTitle string    `json:"assignment_title"`
	UsagePurpose    string    `json:"usage_purpose"`
	AIContent       string    `json:"ai_content"`
	ScreenshotPath  *string   `json:"screenshot_path"`
	CreatedAt       time.Time `json:"created_at"`
	AITools         []string  `json:"ai_tools"`
	DeclarationIDs  []int64   `json:"declaration_ids"`
}
