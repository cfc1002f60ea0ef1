// Package placestore persists canonical places in Postgres. Rows are keyed by
// the provider's place id; refreshing the same place overwrites every field
// except its identity and creation time.
package placestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chompapp/search-api/internal/core/model"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const placeColumns = `id, provider_place_id, name, formatted_address, lat, lng,
	primary_category, categories, rating, user_rating_count, price_level,
	phone, website, provider_payload, last_fetched_at, created_at, updated_at`

// UpsertBatch inserts or refreshes all places in one statement and returns
// the stored rows in input order. last_fetched_at never moves backwards.
func (s *Store) UpsertBatch(ctx context.Context, fields []model.PlaceFields) ([]model.Place, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	const cols = 15
	var (
		sb   strings.Builder
		args = make([]any, 0, len(fields)*cols)
	)
	sb.WriteString(`INSERT INTO places
		(id, provider_place_id, name, formatted_address, lat, lng,
		 primary_category, categories, rating, user_rating_count, price_level,
		 phone, website, provider_payload, last_fetched_at)
		VALUES `)
	for i, f := range fields {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * cols
		sb.WriteString("(")
		for j := 1; j <= cols; j++ {
			if j > 1 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args,
			uuid.New(), f.ProviderPlaceID, f.Name, f.FormattedAddress, f.Lat, f.Lng,
			f.PrimaryCategory, f.Categories, f.Rating, f.UserRatingCount, f.PriceLevel,
			f.Phone, f.Website, []byte(f.ProviderPayload), f.LastFetchedAt,
		)
	}
	sb.WriteString(`
		ON CONFLICT (provider_place_id) DO UPDATE SET
			name = EXCLUDED.name,
			formatted_address = EXCLUDED.formatted_address,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			primary_category = EXCLUDED.primary_category,
			categories = EXCLUDED.categories,
			rating = EXCLUDED.rating,
			user_rating_count = EXCLUDED.user_rating_count,
			price_level = EXCLUDED.price_level,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			provider_payload = EXCLUDED.provider_payload,
			last_fetched_at = GREATEST(places.last_fetched_at, EXCLUDED.last_fetched_at),
			updated_at = now()
		RETURNING ` + placeColumns)

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("upsert %d places: %w", len(fields), err)
	}
	places, err := scanPlaces(rows)
	if err != nil {
		return nil, fmt.Errorf("upsert %d places: %w", len(fields), err)
	}

	order := make([]string, len(fields))
	for i, f := range fields {
		order[i] = f.ProviderPlaceID
	}
	return orderByProviderID(places, order), nil
}

// GetByProviderIDs returns the places matching ids, preserving the requested
// order. Unknown ids are simply absent from the result.
func (s *Store) GetByProviderIDs(ctx context.Context, ids []string) ([]model.Place, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+placeColumns+` FROM places WHERE provider_place_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("select %d places: %w", len(ids), err)
	}
	places, err := scanPlaces(rows)
	if err != nil {
		return nil, fmt.Errorf("select %d places: %w", len(ids), err)
	}
	return orderByProviderID(places, ids), nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

func scanPlaces(rows pgx.Rows) ([]model.Place, error) {
	defer rows.Close()
	var out []model.Place
	for rows.Next() {
		var (
			p       model.Place
			id      uuid.UUID
			payload []byte
		)
		err := rows.Scan(
			&id, &p.ProviderPlaceID, &p.Name, &p.FormattedAddress, &p.Lat, &p.Lng,
			&p.PrimaryCategory, &p.Categories, &p.Rating, &p.UserRatingCount, &p.PriceLevel,
			&p.Phone, &p.Website, &payload, &p.LastFetchedAt, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		p.ID = id.String()
		p.ProviderPayload = payload
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read places: %w", err)
	}
	return out, nil
}

// reorders rows to match the requested provider id order, dropping ids with
// no matching row
func orderByProviderID(places []model.Place, order []string) []model.Place {
	byID := make(map[string]model.Place, len(places))
	for _, p := range places {
		byID[p.ProviderPlaceID] = p
	}
	out := make([]model.Place, 0, len(places))
	for _, id := range order {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
