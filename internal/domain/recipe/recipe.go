package recipe

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested recipe does not exist.
var ErrNotFound = errors.New("recipe not found")

// Step is one labelled stage of a recipe shown in step mode.
type Step struct {
	Label   string
	Content string
}

// Recipe is an internal preparation sheet.
type Recipe struct {
	ID           string
	Name         string
	Description  string
	Yield        string
	Ingredients  string
	Instructions string
	// Steps is nil when the recipe uses free-form instructions.
	Steps     []Step
	CreatedAt time.Time
}

// InvalidFieldError reports a recipe field that failed validation.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return "invalid recipe " + e.Field + ": " + e.Reason
}

// Normalize trims text fields. An empty step list collapses to nil.
func (r *Recipe) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Yield = strings.TrimSpace(r.Yield)
	r.Ingredients = strings.TrimSpace(r.Ingredients)
	r.Instructions = strings.TrimSpace(r.Instructions)
	for i := range r.Steps {
		r.Steps[i].Label = strings.TrimSpace(r.Steps[i].Label)
		r.Steps[i].Content = strings.TrimSpace(r.Steps[i].Content)
	}
	if len(r.Steps) == 0 {
		r.Steps = nil
	}
}

// Validate checks the recipe fields.
func (r *Recipe) Validate() error {
	if r.Name == "" {
		return &InvalidFieldError{Field: "name", Reason: "required"}
	}
	for i, s := range r.Steps {
		if s.Label == "" || s.Content == "" {
			return &InvalidFieldError{Field: "steps", Reason: "step " + strconv.Itoa(i+1) + " needs a label and content"}
		}
	}
	return nil
}

// Repository defines persistence operations for recipes.
type Repository interface {
	// List returns recipes, newest first, filtered by a case-insensitive
	// name match when query is not empty.
	List(ctx context.Context, query string) ([]Recipe, error)
	Get(ctx context.Context, id string) (*Recipe, error)
	Create(ctx context.Context, r *Recipe) error
	Update(ctx context.Context, r *Recipe) error
	Delete(ctx context.Context, id string) error
}

// Service manages recipes.
type Service struct {
	recipes Repository
}

// NewService creates a recipe Service.
func NewService(recipes Repository) *Service {
	return &Service{recipes: recipes}
}

// List returns recipes matching query.
func (s *Service) List(ctx context.Context, query string) ([]Recipe, error) {
	recipes, err := s.recipes.List(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, errors.Wrap(err, "list recipes")
	}
	return recipes, nil
}

// Get returns one recipe.
func (s *Service) Get(ctx context.Context, id string) (*Recipe, error) {
	return s.recipes.Get(ctx, id)
}

// Create validates and stores a new recipe.
func (s *Service) Create(ctx context.Context, r *Recipe) error {
	r.ID = ""
	r.Normalize()
	if err := r.Validate(); err != nil {
		return err
	}
	if err := s.recipes.Create(ctx, r); err != nil {
		return errors.Wrap(err, "create recipe")
	}
	return nil
}

// Update validates and stores changes to a recipe.
func (s *Service) Update(ctx context.Context, r *Recipe) error {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return err
	}
	if err := s.recipes.Update(ctx, r); err != nil {
		return errors.Wrap(err, "update recipe")
	}
	return nil
}

// Delete removes a recipe.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.recipes.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete recipe")
	}
	return nil
}
