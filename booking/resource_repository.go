package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/patrickmn/go-cache"
)

// ResourceRepository reads resource definitions. This core never writes them.
type ResourceRepository struct{ db DB }

func NewResourceRepository(db DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (r *ResourceRepository) GetResource(ctx context.Context, resourceType ResourceType, id string) (Resource, error) {
	sql := `
			SELECT id, resource_type, name, location, base_price, price_period
			FROM "camping".resource
			WHERE resource_type=$1 AND id=$2;
		`

	var res Resource
	err := r.db.QueryRow(ctx, sql, resourceType, id).Scan(
		&res.ID,
		&res.Type,
		&res.Name,
		&res.Location,
		&res.BasePrice,
		&res.Period,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return Resource{}, ErrResourceNotFound
	}

	if err != nil {
		return Resource{}, &NetworkError{Op: fmt.Sprintf("failed to fetch %v '%v'", resourceType, id), Err: err}
	}

	return res, nil
}

// CachedCatalog keeps resource definitions in memory for a short while so a
// busy cart does not hit the resource service on every quote.
type CachedCatalog struct {
	next  Catalog
	cache *cache.Cache
}

func NewCachedCatalog(next Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedCatalog) GetResource(ctx context.Context, resourceType ResourceType, id string) (Resource, error) {
	key := string(resourceType) + ":" + id

	if cached, found := c.cache.Get(key); found {
		return cached.(Resource), nil
	}

	res, err := c.next.GetResource(ctx, resourceType, id)

	if err != nil {
		return Resource{}, err
	}

	c.cache.Set(key, res, cache.DefaultExpiration)

	return res, nil
}
