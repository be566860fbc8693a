// Package index builds and queries the category index: a persisted,
// read-mostly collection of category records searchable by semantic
// similarity over their descriptions.
package index

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/irishask/financial-ai-agent/internal/common"
	"github.com/irishask/financial-ai-agent/internal/model"
)

// knowledge base file schema: groups containing subcategories, each with
// id, name and description.
type kbFile struct {
	CategoryGroups []kbGroup `json:"category_groups"`
}

type kbGroup struct {
	ID            string          `json:"categoryGroupId"`
	Name          string          `json:"categoryGroupName"`
	Description   string          `json:"description"`
	Subcategories []kbSubcategory `json:"subcategories"`
}

type kbSubcategory struct {
	ID          string `json:"subCategoryId"`
	Name        string `json:"subCategoryName"`
	Description string `json:"description"`
}

// LoadKnowledgeBase reads the static category knowledge base and flattens
// it into category records, groups first, preserving file order. Every
// subcategory references its parent group.
func LoadKnowledgeBase(path string) ([]model.CategoryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var kb kbFile
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}
	if len(kb.CategoryGroups) == 0 {
		return nil, fmt.Errorf("knowledge base %s has no category groups", path)
	}

	seen := make(map[string]struct{})
	var records []model.CategoryRecord
	for _, group := range kb.CategoryGroups {
		if group.ID == "" || group.Name == "" {
			return nil, fmt.Errorf("knowledge base group missing id or name: %+v", group)
		}
		if _, dup := seen[group.ID]; dup {
			return nil, fmt.Errorf("%w: category id %q in knowledge base", common.ErrDuplicateEntry, group.ID)
		}
		seen[group.ID] = struct{}{}

		records = append(records, model.CategoryRecord{
			ID:          group.ID,
			Name:        group.Name,
			Level:       model.LevelGroup,
			Description: group.Description,
		})

		for _, sub := range group.Subcategories {
			if sub.ID == "" || sub.Name == "" {
				return nil, fmt.Errorf("knowledge base subcategory missing id or name under %q", group.ID)
			}
			if _, dup := seen[sub.ID]; dup {
				return nil, fmt.Errorf("%w: category id %q in knowledge base", common.ErrDuplicateEntry, sub.ID)
			}
			seen[sub.ID] = struct{}{}

			records = append(records, model.CategoryRecord{
				ID:          sub.ID,
				Name:        sub.Name,
				Level:       model.LevelSubcategory,
				ParentID:    group.ID,
				ParentName:  group.Name,
				Description: sub.Description,
			})
		}
	}

	return records, nil
}

// EmbeddingText is the text embedded for a category record: the rich
// description with the name appended so exact term matches rank high.
func EmbeddingText(rec model.CategoryRecord) string {
	return rec.Description + " " + rec.Name
}
