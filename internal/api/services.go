package api

import "github.com/shelfwise/shelfwise-server/internal/service"

// Services groups the business logic services used by the API server.
type Services struct {
	Auth   *service.AuthService
	Book   *service.BookService
	Review *service.ReviewService
	Search *service.SearchService // health reporting only; search goes through Book
}
