package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/internal/domain/repository"
)

type CityRepository struct {
	pool *pgxpool.Pool
}

func NewCityRepository(pool *pgxpool.Pool) *CityRepository {
	return &CityRepository{pool: pool}
}

// GetOrCreate inserts with ON CONFLICT DO NOTHING so two concurrent first uses
// of the same name still end up with one row.
func (r *CityRepository) GetOrCreate(ctx context.Context, name string) (*entity.City, bool, error) {
	c := &entity.City{Name: name}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cities (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id
	`, name).Scan(&c.ID)
	if err == nil {
		return c, true, nil
	}
	if mapErr(err) != repository.ErrNotFound {
		return nil, false, err
	}
	existing, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *CityRepository) GetByName(ctx context.Context, name string) (*entity.City, error) {
	c := &entity.City{}
	if err := r.pool.QueryRow(ctx, `SELECT id, name FROM cities WHERE name = $1`, name).Scan(&c.ID, &c.Name); err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func (r *CityRepository) SearchByPrefix(ctx context.Context, prefix string, limit int) ([]entity.City, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name FROM cities
		WHERE name ILIKE $1 || '%' ESCAPE '\'
		ORDER BY name
		LIMIT $2
	`, escapeLike(prefix), limit)
	if err != nil {
		return nil, err
	}
	return scanCities(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

var _ repository.CityRepository = (*CityRepository)(nil)
