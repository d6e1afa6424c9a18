// Package services содержит бизнес-логику каталога: книги, категории
// и физические экземпляры с проверкой ISBN и кешированием чтений.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/library-loans/internal/lib/isbn"
	"github.com/magabrotheeeer/library-loans/internal/lib/sl"
	"github.com/magabrotheeeer/library-loans/internal/models"
	"github.com/magabrotheeeer/library-loans/internal/storage/repository"
)

// Ошибки бизнес-правил каталога.
var (
	ErrInvalidISBN  = errors.New("invalid isbn")
	ErrCopyLoaned   = errors.New("copy is loaned")
	ErrBookHasLoans = errors.New("book has open loans")
)

const booksCacheKey = "books:all"

// CatalogRepository определяет методы хранилища, используемые каталогом.
type CatalogRepository interface {
	// WithTx выполняет fn внутри одной транзакции.
	WithTx(ctx context.Context, fn func(tx repository.Tx) error) error
	// CreateBook вставляет книгу и возвращает её ID.
	CreateBook(ctx context.Context, book models.Book) (int, error)
	// GetBook возвращает книгу по ID.
	GetBook(ctx context.Context, id int) (*models.Book, error)
	// GetBookByTitle возвращает книгу по названию без учёта регистра.
	GetBookByTitle(ctx context.Context, title string) (*models.Book, error)
	// ListBooks возвращает все книги каталога.
	ListBooks(ctx context.Context) ([]models.Book, error)
	// DeleteBook удаляет книгу и возвращает количество удалённых строк.
	DeleteBook(ctx context.Context, id int) (int, error)
	// CountOngoingLoansForBook возвращает количество незавершённых займов книги.
	CountOngoingLoansForBook(ctx context.Context, bookID int) (int, error)
	// CreateCategory вставляет категорию и возвращает её ID.
	CreateCategory(ctx context.Context, name string) (int, error)
	// ListCategories возвращает все категории.
	ListCategories(ctx context.Context) ([]models.Category, error)
	// GetCopy возвращает экземпляр по ID.
	GetCopy(ctx context.Context, id int) (*models.Copy, error)
	// FindCopyByISBN возвращает экземпляр по ISBN.
	FindCopyByISBN(ctx context.Context, isbn string) (*models.Copy, error)
	// ListCopiesForBook возвращает все экземпляры книги.
	ListCopiesForBook(ctx context.Context, bookID int) ([]models.Copy, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// CatalogService реализует операции каталога с кешированием чтений.
type CatalogService struct {
	repo  CatalogRepository
	cache Cache
	log   *slog.Logger
}

// NewCatalogService создает новый экземпляр CatalogService.
func NewCatalogService(repo CatalogRepository, cache Cache, log *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// CreateBook добавляет книгу каталога с нулевыми счётчиками экземпляров.
func (s *CatalogService) CreateBook(ctx context.Context, req models.DummyBook) (int, error) {
	id, err := s.repo.CreateBook(ctx, models.Book{
		Title:      req.Title,
		Author:     req.Author,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(booksCacheKey)
	s.log.Info("book created", slog.Int("id", id), slog.String("title", req.Title))
	return id, nil
}

// GetBook возвращает книгу по ID, используя кеш или хранилище.
func (s *CatalogService) GetBook(ctx context.Context, id int) (*models.Book, error) {
	var result *models.Book
	cacheKey := fmt.Sprintf("book:%d", id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("failed to read book from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return result, nil
	}

	result, err = s.repo.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
		s.log.Warn("failed to cache book", slog.String("key", cacheKey), sl.Err(err))
	}
	return result, nil
}

// FindBookByTitle возвращает книгу по названию без учёта регистра.
func (s *CatalogService) FindBookByTitle(ctx context.Context, title string) (*models.Book, error) {
	return s.repo.GetBookByTitle(ctx, title)
}

// ListBooks возвращает все книги каталога, используя кеш или хранилище.
func (s *CatalogService) ListBooks(ctx context.Context) ([]models.Book, error) {
	var result []models.Book
	found, err := s.cache.Get(booksCacheKey, &result)
	if err != nil {
		s.log.Warn("failed to read books from cache", sl.Err(err))
	}
	if found {
		return result, nil
	}

	result, err = s.repo.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(booksCacheKey, result, time.Hour); err != nil {
		s.log.Warn("failed to cache books", sl.Err(err))
	}
	return result, nil
}

// DeleteBook удаляет книгу. Отказывает, пока у книги есть незавершённые займы.
func (s *CatalogService) DeleteBook(ctx context.Context, id int) error {
	open, err := s.repo.CountOngoingLoansForBook(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrBookHasLoans
	}
	count, err := s.repo.DeleteBook(ctx, id)
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	s.invalidate(booksCacheKey)
	s.invalidate(fmt.Sprintf("book:%d", id))
	s.log.Info("book deleted", slog.Int("id", id))
	return nil
}

// CreateCategory добавляет категорию книг.
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (int, error) {
	return s.repo.CreateCategory(ctx, name)
}

// ListCategories возвращает все категории книг.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

// AddCopy добавляет физический экземпляр книги: ISBN проверяется контрольной
// суммой и приводится к канонической форме, счётчики книги растут на единицу.
func (s *CatalogService) AddCopy(ctx context.Context, req models.DummyCopy) (int, error) {
	canonical, ok := isbn.Format(req.ISBN)
	if !ok {
		return 0, ErrInvalidISBN
	}

	var copyID int
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockBook(ctx, req.BookID); err != nil {
			return err
		}
		var err error
		copyID, err = tx.CreateCopy(ctx, models.Copy{
			BookID:    req.BookID,
			ISBN:      canonical,
			Condition: req.Condition,
		})
		if err != nil {
			return err
		}
		return tx.AddBookInventory(ctx, req.BookID)
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(booksCacheKey)
	s.invalidate(fmt.Sprintf("book:%d", req.BookID))
	s.log.Info("copy added",
		slog.Int("copy_id", copyID),
		slog.Int("book_id", req.BookID),
		slog.String("isbn", canonical))
	return copyID, nil
}

// RemoveCopy удаляет свободный экземпляр и уменьшает счётчики книги.
// Экземпляр в займе удалить нельзя.
func (s *CatalogService) RemoveCopy(ctx context.Context, copyID int) error {
	copy, err := s.repo.GetCopy(ctx, copyID)
	if err != nil {
		return err
	}
	if copy.IsLoaned {
		return ErrCopyLoaned
	}

	err = s.repo.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockBook(ctx, copy.BookID); err != nil {
			return err
		}
		if err := tx.DeleteCopy(ctx, copyID); err != nil {
			return err
		}
		return tx.RemoveBookInventory(ctx, copy.BookID)
	})
	if err != nil {
		return err
	}

	s.invalidate(booksCacheKey)
	s.invalidate(fmt.Sprintf("book:%d", copy.BookID))
	s.log.Info("copy removed", slog.Int("copy_id", copyID))
	return nil
}

// FindCopyByISBN возвращает экземпляр по ISBN в любой записи с дефисами или без.
func (s *CatalogService) FindCopyByISBN(ctx context.Context, raw string) (*models.Copy, error) {
	canonical, ok := isbn.Format(raw)
	if !ok {
		return nil, ErrInvalidISBN
	}
	return s.repo.FindCopyByISBN(ctx, canonical)
}

// ListCopies возвращает все экземпляры книги.
func (s *CatalogService) ListCopies(ctx context.Context, bookID int) ([]models.Copy, error) {
	return s.repo.ListCopiesForBook(ctx, bookID)
}

func (s *CatalogService) invalidate(key string) {
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", key), sl.Err(err))
	}
}
