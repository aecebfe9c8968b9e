package dto

type UploadImageInput struct {
	Image string `json:"image" binding:"required"`
	Name  string `json:"name" binding:"omitempty,max=100"`
}

type UploadImageResponse struct {
	URL string `json:"url"`
}
