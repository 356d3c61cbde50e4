package product

import (
	"context"
	"io"

	"github.com/go-faster/errors"
)

// DefaultFeaturedLimit is the number of featured products shown when the
// caller does not ask for a specific amount.
const DefaultFeaturedLimit = 3

// ImageUploader stores product images and returns their public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, productID, filename, contentType string, body io.Reader) (string, error)
}

// Service exposes the catalog to the storefront and the back office.
type Service struct {
	products Repository
	images   ImageUploader
}

// NewService creates a product Service. images may be nil, in which case
// image uploads are rejected.
func NewService(products Repository, images ImageUploader) *Service {
	return &Service{products: products, images: images}
}

// ErrUploadsDisabled is returned by UploadImage when no image storage is
// configured.
var ErrUploadsDisabled = errors.New("image uploads are disabled")

// Catalog returns active products, optionally restricted to a category.
func (s *Service) Catalog(ctx context.Context, category Category) ([]Product, error) {
	if category != "" && !category.Valid() {
		return nil, &InvalidFieldError{Field: "category", Reason: "unknown category " + string(category)}
	}
	products, err := s.products.List(ctx, Filter{ActiveOnly: true, Category: category})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Featured returns the newest active products.
func (s *Service) Featured(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	products, err := s.products.List(ctx, Filter{ActiveOnly: true, Limit: limit})
	if err != nil {
		return nil, errors.Wrap(err, "list featured products")
	}
	return products, nil
}

// Get returns an active product. Disabled products are reported as not found.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrNotFound
	}
	return p, nil
}

// All returns every product, including disabled ones.
func (s *Service) All(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx, Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Lookup returns a product regardless of its active flag.
func (s *Service) Lookup(ctx context.Context, id string) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	p.ID = ""
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return errors.Wrap(err, "create product")
	}
	return nil
}

// Update validates and stores changes to an existing product.
func (s *Service) Update(ctx context.Context, p *Product) error {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.products.Update(ctx, p); err != nil {
		return errors.Wrap(err, "update product")
	}
	return nil
}

// Delete removes a product. Past order lines keep their name snapshot.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete product")
	}
	return nil
}

// Duplicate returns an unsaved copy of a product to pre-fill a new one.
func (s *Service) Duplicate(ctx context.Context, id string) (*Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := p.Duplicate()
	return &d, nil
}

// AdjustStock adds delta to the stock of a product and returns the new value.
// The stock never drops below zero.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	stock, err := s.products.AdjustStock(ctx, id, delta)
	if err != nil {
		return 0, errors.Wrap(err, "adjust stock")
	}
	return stock, nil
}

// UploadImage stores an image for the product and records its URL.
func (s *Service) UploadImage(ctx context.Context, id, filename, contentType string, body io.Reader) (*Product, error) {
	if s.images == nil {
		return nil, ErrUploadsDisabled
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.images.UploadImage(ctx, id, filename, contentType, body)
	if err != nil {
		return nil, errors.Wrap(err, "upload image")
	}
	p.ImageURL = url
	if err := s.products.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update product image")
	}
	return p, nil
}
