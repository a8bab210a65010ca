package dto

type CreateTweetRequest struct {
	Body string `json:"body"`
}
