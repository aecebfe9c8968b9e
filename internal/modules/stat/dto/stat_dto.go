package dto

type GenreStat struct {
	Genre string `json:"genre"`
	Count int64  `json:"count"`
}

type SiteStatsResponse struct {
	TotalUsers   int64       `json:"totalUsers"`
	TotalStories int64       `json:"totalStories"`
	Genres       []GenreStat `json:"genres"`
}
