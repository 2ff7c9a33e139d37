package service

import "github.com/noah-isme/ai-declaration-api/internal/models"

// GroupDeclarations folds rows that belong to the same submission into one group.
// Groups appear in the order their first row appears; tools keep row order.
func GroupDeclarations(rows []models.Declaration) []models.DeclarationGroup {
	groups := make([]models.DeclarationGroup, 0)
	index := make(map[string]int, len(rows))
	for _, row := range rows {
		key := row.GroupKey()
		if i, ok := index[key]; ok {
			groups[i].AITools = append(groups[i].AITools, row.AITool)
			groups[i].DeclarationIDs = append(groups[i].DeclarationIDs, row.ID)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, models.DeclarationGroup{
			Key:             key,
			SubmissionID:    row.SubmissionID,
			UserName:        row.UserName,
			AssignmentTitle: row.AssignmentTitle,
			UsagePurpose:    row.UsagePurpose,
			AIContent:       row.AIContent,
			ScreenshotPath:  row.ScreenshotPath,
			CreatedAt:       row.CreatedAt,
			AITools:         []string{row.AITool},
			DeclarationIDs:  []int64{row.ID},
		})
	}
	return groups
}
