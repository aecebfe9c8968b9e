package dto

// LikeResult is the state after a like or unlike. AlreadyLiked is set when a
// like found an existing fact and changed nothing.
type LikeResult struct {
	Liked        bool  `json:"liked"`
	AlreadyLiked bool  `json:"alreadyLiked"`
	LikesCount   int64 `json:"likesCount"`
}
