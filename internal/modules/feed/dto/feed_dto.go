package dto

import (
	"time"

	storyDto "anoa.com/storyverse/internal/modules/story/dto"
)

const (
	SectionTrending    = "trending"
	SectionLatest      = "latest"
	SectionQuickReads  = "quickReads"
	SectionEditorPicks = "editorPicks"
)

// HomepageResponse is the assembled homepage; Data is keyed by section name.
type HomepageResponse struct {
	OK        bool                                `json:"ok"`
	Data      map[string][]storyDto.StoryResponse `json:"data"`
	Timestamp time.Time                           `json:"timestamp"`
}
