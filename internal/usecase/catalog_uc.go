package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/alunashop/tienda/internal/domain"
)

type CatalogUC struct {
	Products domain.ProductRepo
}

func (uc *CatalogUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	return uc.Products.List(ctx, f)
}

func (uc *CatalogUC) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if slug == "" {
		return nil, errors.New("slug vacío")
	}
	return uc.Products.FindBySlug(ctx, slug)
}

func (uc *CatalogUC) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, errors.New("id inválido")
	}
	return uc.Products.FindByID(ctx, id)
}

// KitItems devuelve el catálogo del armador de kits. Una falla del repo
// degrada a lista vacía: nunca propaga una excepción hacia el armador.
func (uc *CatalogUC) KitItems(ctx context.Context) []domain.KitItem {
	items, err := uc.Products.KitItems(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("catálogo de kits no disponible")
		return []domain.KitItem{}
	}
	return items
}

func (uc *CatalogUC) Categories(ctx context.Context) ([]string, error) {
	if repo, ok := uc.Products.(interface {
		DistinctCategories(context.Context) ([]string, error)
	}); ok {
		return repo.DistinctCategories(ctx)
	}
	return []string{}, nil
}
