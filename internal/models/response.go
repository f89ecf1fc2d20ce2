package models

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SubmitResponse is returned by POST /api/submit-story.
type SubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	StoryID string `json:"storyId"`
}

// StoryActionResponse is returned by approve and reject.
type StoryActionResponse struct {
	Success bool   `json:"success"`
	Story   *Story `json:"story"`
}

// BanResponse is returned by the ban endpoint.
type BanResponse struct {
	Success    bool   `json:"success"`
	BannedUser string `json:"bannedUser"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
