package dto

import "anoa.com/storyverse/internal/entity"

type VoteInput struct {
	Mood entity.Mood `json:"mood" binding:"required"`
}

// PulseResult is the caller's vote and the story's pulse afterwards. Mood is
// empty once a vote is retracted.
type PulseResult struct {
	Mood    entity.Mood        `json:"mood"`
	Pulse   entity.PulseCounts `json:"pulse"`
	Changed bool               `json:"changed"`
}
