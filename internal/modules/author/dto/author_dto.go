package dto

import "encoding/json"

// AuthorSummary is the author shape every story response carries. Empty
// fields serialise as null, so the zero value is the "no author" sentinel.
type AuthorSummary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage"`
}

func (a AuthorSummary) IsZero() bool {
	return a == AuthorSummary{}
}

func (a AuthorSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID           *string `json:"id"`
		Username     *string `json:"username"`
		Name         *string `json:"name"`
		ProfileImage *string `json:"profileImage"`
	}{
		ID:           nullable(a.ID),
		Username:     nullable(a.Username),
		Name:         nullable(a.Name),
		ProfileImage: nullable(a.ProfileImage),
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
