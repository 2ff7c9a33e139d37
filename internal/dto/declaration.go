package dto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CreateDeclarationRequest is the typed multipart payload of a submission.
type CreateDeclarationRequest struct {
	UserName        string   `form:"userName" validate:"required,max=255"`
	AssignmentTitle string   `form:"assignmentTitle" validate:"required,max=500"`
	UsagePurpose    string   `form:"usagePurpose" validate:"required"`
	AIContent       string   `form:"aiContent" validate:"required"`
	AITools         []string `form:"aiTools" validate:"required,min=1,dive,required,max=255"`
}

// DeclarationForm carries the raw form values before tool decoding.
type DeclarationForm struct {
	UserName        string `form:"userName"`
	AssignmentTitle string `form:"assignmentTitle"`
	UsagePurpose    string `form:"usagePurpose"`
	AIContent       string `form:"aiContent"`
	AITools         string `form:"aiTools"`
	CustomTool      string `form:"customTool"`
}

// ToRequest trims every field and decodes aiTools as a JSON array of strings.
// The custom tool, when present, is appended after the selected tools.
func (f DeclarationForm) ToRequest() (CreateDeclarationRequest, error) {
	req := CreateDeclarationRequest{
		UserName:        strings.TrimSpace(f.UserName),
		AssignmentTitle: strings.TrimSpace(f.AssignmentTitle),
		UsagePurpose:    strings.TrimSpace(f.UsagePurpose),
		AIContent:       strings.TrimSpace(f.AIContent),
	}

	tools, err := ParseToolList(f.AITools)
	if err != nil {
		return req, err
	}
	if custom := strings.TrimSpace(f.CustomTool); custom != "" {
		tools = append(tools, custom)
	}
	req.AITools = tools
	return req, nil
}

// ParseToolList decodes a serialized list of tool names. Blank entries are dropped,
// duplicates are kept.
func ParseToolList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	var decoded []string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("aiTools must be a JSON array of strings: %w", err)
	}
	tools := make([]string, 0, len(decoded))
	for _, tool := range decoded {
		if trimmed := strings.TrimSpace(tool); trimmed != "" {
			tools = append(tools, trimmed)
		}
	}
	return tools, nil
}

// CreateDeclarationResult summarises a successful submission.
type CreateDeclarationResult struct {
	Count          int     `json:"count"`
	SubmissionID   string  `json:"submission_id"`
	ScreenshotPath *string `json:"screenshot_path,omitempty"`
}
