package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-weather-digest/internal/domain/entity"
	"github.com/oksasatya/go-weather-digest/internal/domain/repository"
)

const (
	favouritesTable    = "favourites"
	subscriptionsTable = "email_subscriptions"
)

type RelationRepository struct {
	pool *pgxpool.Pool
}

func NewRelationRepository(pool *pgxpool.Pool) *RelationRepository {
	return &RelationRepository{pool: pool}
}

func (r *RelationRepository) add(ctx context.Context, table string, userID, cityID int64) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		INSERT INTO `+table+` (user_id, city_id) VALUES ($1, $2)
		ON CONFLICT (user_id, city_id) DO NOTHING
	`, userID, cityID)
	if err != nil {
		return false, mapErr(err)
	}
	return res.RowsAffected() == 1, nil
}

func (r *RelationRepository) AddFavorite(ctx context.Context, userID, cityID int64) (bool, error) {
	return r.add(ctx, favouritesTable, userID, cityID)
}

func (r *RelationRepository) AddSubscription(ctx context.Context, userID, cityID int64) (bool, error) {
	return r.add(ctx, subscriptionsTable, userID, cityID)
}

func (r *RelationRepository) list(ctx context.Context, table string, userID int64) ([]entity.City, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name
		FROM `+table+` t
		JOIN cities c ON c.id = t.city_id
		WHERE t.user_id = $1
		ORDER BY c.name
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanCities(rows)
}

func (r *RelationRepository) ListFavorites(ctx context.Context, userID int64) ([]entity.City, error) {
	return r.list(ctx, favouritesTable, userID)
}

func (r *RelationRepository) ListSubscriptions(ctx context.Context, userID int64) ([]entity.City, error) {
	return r.list(ctx, subscriptionsTable, userID)
}

// ReplaceSettings deletes and re-inserts both relation sets inside a single
// transaction; a foreign key failure rolls back everything.
func (r *RelationRepository) ReplaceSettings(ctx context.Context, userID int64, favoriteIDs, subscriptionIDs []int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := replaceSet(ctx, tx, favouritesTable, userID, favoriteIDs); err != nil {
			return err
		}
		return replaceSet(ctx, tx, subscriptionsTable, userID, subscriptionIDs)
	})
}

func replaceSet(ctx context.Context, tx pgx.Tx, table string, userID int64, cityIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if len(cityIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO `+table+` (user_id, city_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT (user_id, city_id) DO NOTHING
	`, userID, cityIDs)
	if err != nil {
		return fmt.Errorf("fill %s: %w", table, mapErr(err))
	}
	return nil
}

// ListDigestRecipients runs on its own pooled connection so the scheduled job
// never shares a request-scoped one.
func (r *RelationRepository) ListDigestRecipients(ctx context.Context) ([]entity.DigestRecipient, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT u.id, u.username, u.email, c.name
		FROM users u
		JOIN email_subscriptions s ON s.user_id = u.id
		JOIN cities c ON c.id = s.city_id
		WHERE u.email_confirmed
		ORDER BY u.id, c.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.DigestRecipient
	for rows.Next() {
		var (
			id              int64
			username, email string
			city            string
		)
		if err := rows.Scan(&id, &username, &email, &city); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].UserID != id {
			out = append(out, entity.DigestRecipient{UserID: id, Username: username, Email: email})
		}
		last := &out[len(out)-1]
		last.Cities = append(last.Cities, city)
	}
	return out, rows.Err()
}

func scanCities(rows pgx.Rows) ([]entity.City, error) {
	defer rows.Close()
	out := []entity.City{}
	for rows.Next() {
		var c entity.City
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ repository.RelationRepository = (*RelationRepository)(nil)
