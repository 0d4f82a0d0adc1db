// Package library holds the read-only relation store of authors, publishers
// and books, and the resolver functions that join them.
package library

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// ErrInvalidSeed is returned when seed records fail validation.
var ErrInvalidSeed = errors.New("invalid seed")

type Author struct {
	ID   string `yaml:"id" validate:"required"`
	Name string `yaml:"name" validate:"required"`
}

type Publisher struct {
	ID   string `yaml:"id" validate:"required"`
	Name string `yaml:"name" validate:"required"`
}

// Book references its author and publisher by id. Either key may dangle.
type Book struct {
	ID          string `yaml:"id" validate:"required"`
	Title       string `yaml:"title" validate:"required"`
	AuthorID    string `yaml:"authorId"`
	PublisherID string `yaml:"publisherId"`
}

// Seed is the initial content of a Store.
type Seed struct {
	Authors    []Author    `yaml:"authors" validate:"dive"`
	Publishers []Publisher `yaml:"publishers" validate:"dive"`
	Books      []Book      `yaml:"books" validate:"dive"`
}

// Duplicates lists ids that occur more than once within a collection,
// formatted as "<collection>/<id>". Lookups resolve duplicates to the first
// record.
func (s Seed) Duplicates() []string {
	var out []string
	for _, id := range lo.FindDuplicates(lo.Map(s.Authors, func(a Author, _ int) string { return a.ID })) {
		out = append(out, "authors/"+id)
	}
	for _, id := range lo.FindDuplicates(lo.Map(s.Publishers, func(p Publisher, _ int) string { return p.ID })) {
		out = append(out, "publishers/"+id)
	}
	for _, id := range lo.FindDuplicates(lo.Map(s.Books, func(b Book, _ int) string { return b.ID })) {
		out = append(out, "books/"+id)
	}
	return out
}

// Store is the immutable in-memory relation store. It is safe for concurrent
// use because nothing is written after NewStore returns.
type Store struct {
	authors    []Author
	publishers []Publisher
	books      []Book
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewStore validates seed and copies it into a new Store.
func NewStore(seed Seed) (*Store, error) {
	if err := validate.Struct(seed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return &Store{
		authors:    append([]Author(nil), seed.Authors...),
		publishers: append([]Publisher(nil), seed.Publishers...),
		books:      append([]Book(nil), seed.Books...),
	}, nil
}

// MustNewStore is like NewStore but panics on invalid seed.
func MustNewStore(seed Seed) *Store {
	s, err := NewStore(seed)
	if err != nil {
		panic(err)
	}
	return s
}

// Authors returns all authors in seed order.
func (s *Store) Authors() []Author { return append([]Author(nil), s.authors...) }

// Publishers returns all publishers in seed order.
func (s *Store) Publishers() []Publisher { return append([]Publisher(nil), s.publishers...) }

// Books returns all books in seed order.
func (s *Store) Books() []Book { return append([]Book(nil), s.books...) }

// FindAuthorByID returns the first author whose id equals id.
func (s *Store) FindAuthorByID(id string) (Author, bool) {
	return lo.Find(s.authors, func(a Author) bool { return a.ID == id })
}

// FindPublisherByID returns the first publisher whose id equals id.
func (s *Store) FindPublisherByID(id string) (Publisher, bool) {
	return lo.Find(s.publishers, func(p Publisher) bool { return p.ID == id })
}

// FindBookByID returns the first book whose id equals id.
func (s *Store) FindBookByID(id string) (Book, bool) {
	return lo.Find(s.books, func(b Book) bool { return b.ID == id })
}
