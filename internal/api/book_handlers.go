package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/api/dto"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Add book",
		Description:   "Adds a book to the catalog. ISBNs are unique.",
		Tags:          []string{"Books"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns books newest first, optionally filtered by author and genre",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	// Registered before /books/{id} so "search" is not taken for an ID.
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search books",
		Description: "Case-insensitive substring search over title, author and ISBN",
		Tags:        []string{"Books"},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book with a page of its reviews",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Updates the given fields of a book",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete book",
		Description:   "Deletes a book and all of its reviews",
		Tags:          []string{"Books"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBook)
}

func (s *Server) handleCreateBook(ctx context.Context, input *dto.CreateBookInput) (*dto.BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Book.Add(ctx, userID, input.Body.ToService())
	if err != nil {
		return nil, err
	}

	return &dto.BookOutput{Body: dto.NewBook(book)}, nil
}

func (s *Server) handleListBooks(ctx context.Context, input *dto.ListBooksInput) (*dto.BookListOutput, error) {
	page, err := s.services.Book.List(ctx, service.ListBooksRequest{
		Author: input.Author,
		Genre:  input.Genre,
		Page:   input.Page,
		Limit:  input.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &dto.BookListOutput{Body: dto.NewBookList(page)}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *dto.SearchBooksInput) (*dto.BookListOutput, error) {
	page, err := s.services.Book.Search(ctx, input.Query, input.Page, input.Limit)
	if err != nil {
		return nil, err
	}

	return &dto.BookListOutput{Body: dto.NewBookList(page)}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *dto.GetBookInput) (*dto.BookDetailsOutput, error) {
	details, err := s.services.Book.Get(ctx, input.ID, input.ReviewPage, input.ReviewLimit)
	if err != nil {
		return nil, err
	}

	return &dto.BookDetailsOutput{Body: dto.NewBookDetails(details)}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *dto.UpdateBookInput) (*dto.BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Book.Update(ctx, userID, input.ID, input.Body.ToService())
	if err != nil {
		return nil, err
	}

	return &dto.BookOutput{Body: dto.NewBook(book)}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *dto.IDParam) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Book.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
