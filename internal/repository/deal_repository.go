package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blockdeals/blockdeals/internal/models"
)

var ErrDealNotFound = errors.New("deal not found")

type DealRepository struct {
	pool *pgxpool.Pool
}

func NewDealRepository(pool *pgxpool.Pool) *DealRepository {
	return &DealRepository{pool: pool}
}

const dealColumns = `id, permlink, title, description, coupon_code, url, image_url,
	brand, country, country_code, freebie, deal_start, deal_end, deal_expires,
	steem_user, tags, created_at`

// Insert appends a new deal record. Permlinks are expected unique by
// convention but not enforced here.
func (r *DealRepository) Insert(ctx context.Context, deal models.Deal) (int64, error) {
	const query = `
		INSERT INTO deals (
			permlink, title, description, coupon_code, url, image_url,
			brand, country, country_code, freebie, deal_start, deal_end,
			deal_expires, steem_user, tags, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW()
		)
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		deal.Permlink,
		deal.Title,
		deal.Description,
		deal.CouponCode,
		deal.URL,
		deal.ImageURL,
		deal.Brand,
		deal.Country,
		deal.CountryCode,
		deal.Freebie,
		deal.DealStart,
		deal.DealEnd,
		deal.DealExpires,
		deal.SteemUser,
		deal.Tags,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert deal: %w", err)
	}
	return id, nil
}

// PatchImage overwrites image_url on the record with the given permlink.
// No match is a no-op, it never creates.
func (r *DealRepository) PatchImage(ctx context.Context, permlink, imageURL string) error {
	const query = `UPDATE deals SET image_url = $2 WHERE permlink = $1`
	_, err := r.pool.Exec(ctx, query, permlink, imageURL)
	if err != nil {
		return fmt.Errorf("patch image: %w", err)
	}
	return nil
}

// GetByPermlink fetches a single deal by its stable identifier. When the
// same permlink was ever inserted twice the newest record wins.
func (r *DealRepository) GetByPermlink(ctx context.Context, permlink string) (models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE permlink = $1 ORDER BY id DESC LIMIT 1`

	rows, err := r.pool.Query(ctx, query, permlink)
	if err != nil {
		return models.Deal{}, fmt.Errorf("get deal: %w", err)
	}
	defer rows.Close()

	deals, err := scanDeals(rows)
	if err != nil {
		return models.Deal{}, err
	}
	if len(deals) == 0 {
		return models.Deal{}, ErrDealNotFound
	}
	return deals[0], nil
}

// ListActive returns unexpired deals, newest first, optionally narrowed by
// brand or country code. ISO date strings compare correctly as text.
func (r *DealRepository) ListActive(ctx context.Context, filter models.DealFilter) ([]models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE deal_expires >= $1`
	args := []any{today()}

	if filter.Brand != "" {
		args = append(args, filter.Brand)
		query += fmt.Sprintf(" AND brand = $%d", len(args))
	}
	if filter.CountryCode != "" {
		args = append(args, filter.CountryCode)
		query += fmt.Sprintf(" AND country_code = $%d", len(args))
	}
	query += " ORDER BY id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active deals: %w", err)
	}
	defer rows.Close()

	return scanDeals(rows)
}

// DistinctBrands projects the distinct brand names, over active deals only
// when activeOnly is set.
func (r *DealRepository) DistinctBrands(ctx context.Context, activeOnly bool) ([]string, error) {
	return r.distinct(ctx, "brand", activeOnly)
}

// DistinctCountryCodes projects the distinct country codes, over active
// deals only when activeOnly is set.
func (r *DealRepository) DistinctCountryCodes(ctx context.Context, activeOnly bool) ([]string, error) {
	return r.distinct(ctx, "country_code", activeOnly)
}

func (r *DealRepository) distinct(ctx context.Context, column string, activeOnly bool) ([]string, error) {
	// column is one of two compile-time constants, never user input.
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM deals WHERE %s <> ''`, column, column)
	var args []any
	if activeOnly {
		args = append(args, today())
		query += " AND deal_expires >= $1"
	}
	query += fmt.Sprintf(" ORDER BY %s", column)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func scanDeals(rows pgx.Rows) ([]models.Deal, error) {
	var deals []models.Deal
	for rows.Next() {
		var deal models.Deal
		if err := rows.Scan(
			&deal.ID,
			&deal.Permlink,
			&deal.Title,
			&deal.Description,
			&deal.CouponCode,
			&deal.URL,
			&deal.ImageURL,
			&deal.Brand,
			&deal.Country,
			&deal.CountryCode,
			&deal.Freebie,
			&deal.DealStart,
			&deal.DealEnd,
			&deal.DealExpires,
			&deal.SteemUser,
			&deal.Tags,
			&deal.CreatedAt,
		); err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

func today() string {
	return time.Now().Format(models.DateLayout)
}
