package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"encarwatch/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a new ListingStore backed by the given connection pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

const listingCols = `car_id, title, model, badge, year, mileage, detail_url,
	price, true_price, is_lease, lease_deposit, lease_monthly, lease_term_months, lease_final,
	views, registration_date, days_since_registration,
	is_coupe, is_truly_new, first_seen, last_updated,
	is_closed, closure_detected_at, closure_reason`

// UpsertObservation inserts a first observation or refreshes an existing
// row. The conflict branch enforces the invariants in SQL: first_seen and
// closure state are never touched, the truly-new flag is set only on
// insert, an observation carrying no browser data (zero views, empty
// registration date) never erases stored browser fields, and an
// observation carrying no lease terms never reverts the true cost
// computed from stored terms back to the nominal price.
func (s *ListingStore) UpsertObservation(ctx context.Context, l domain.Listing) (domain.UpsertResult, error) {
	const query = `
		INSERT INTO listings (
			car_id, title, model, badge, year, mileage, detail_url,
			price, true_price, is_lease, lease_deposit, lease_monthly, lease_term_months, lease_final,
			views, registration_date, days_since_registration,
			is_coupe, is_truly_new, first_seen, last_updated
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17,
			$18, $19, $20, $21
		)
		ON CONFLICT (car_id) DO UPDATE SET
			title      = EXCLUDED.title,
			model      = EXCLUDED.model,
			badge      = EXCLUDED.badge,
			year       = EXCLUDED.year,
			mileage    = EXCLUDED.mileage,
			detail_url = EXCLUDED.detail_url,
			price      = EXCLUDED.price,
			true_price = CASE
				WHEN EXCLUDED.lease_monthly IS NULL AND listings.lease_monthly IS NOT NULL
				THEN listings.true_price ELSE EXCLUDED.true_price END,
			is_lease   = EXCLUDED.is_lease OR listings.is_lease,
			lease_deposit     = COALESCE(EXCLUDED.lease_deposit, listings.lease_deposit),
			lease_monthly     = COALESCE(EXCLUDED.lease_monthly, listings.lease_monthly),
			lease_term_months = COALESCE(EXCLUDED.lease_term_months, listings.lease_term_months),
			lease_final       = COALESCE(EXCLUDED.lease_final, listings.lease_final),
			is_coupe   = EXCLUDED.is_coupe,
			views = CASE
				WHEN EXCLUDED.views = 0 AND EXCLUDED.registration_date = ''
				THEN listings.views ELSE EXCLUDED.views END,
			registration_date = CASE
				WHEN EXCLUDED.views = 0 AND EXCLUDED.registration_date = ''
				THEN listings.registration_date ELSE EXCLUDED.registration_date END,
			days_since_registration = CASE
				WHEN EXCLUDED.views = 0 AND EXCLUDED.registration_date = ''
				THEN listings.days_since_registration ELSE EXCLUDED.days_since_registration END,
			last_updated = EXCLUDED.last_updated
		RETURNING (xmax = 0) AS created, is_truly_new`

	var dep, mon, fin *float64
	var term *int
	if l.LeaseTerms != nil {
		dep, mon, fin = &l.LeaseTerms.Deposit, &l.LeaseTerms.MonthlyPayment, &l.LeaseTerms.FinalPayment
		term = &l.LeaseTerms.TermMonths
	}

	var res domain.UpsertResult
	err := s.pool.QueryRow(ctx, query,
		l.CarID, l.Title, l.Model, l.Badge, l.Year, l.Mileage, l.DetailURL,
		l.Price, l.TruePrice, l.IsLease, dep, mon, term, fin,
		l.Views, l.RegistrationDate, l.DaysSinceRegistration,
		l.IsCoupe, l.IsTrulyNew, l.FirstSeen, l.LastUpdated,
	).Scan(&res.Created, &res.TrulyNew)
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("postgres: upsert listing %s: %w", l.CarID, err)
	}
	return res, nil
}

// scanListing scans a single listing row.
func scanListing(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	var dep, mon, fin *float64
	var term *int
	var reason string
	err := row.Scan(
		&l.CarID, &l.Title, &l.Model, &l.Badge, &l.Year, &l.Mileage, &l.DetailURL,
		&l.Price, &l.TruePrice, &l.IsLease, &dep, &mon, &term, &fin,
		&l.Views, &l.RegistrationDate, &l.DaysSinceRegistration,
		&l.IsCoupe, &l.IsTrulyNew, &l.FirstSeen, &l.LastUpdated,
		&l.IsClosed, &l.ClosureDetectedAt, &reason,
	)
	if err != nil {
		return domain.Listing{}, err
	}
	l.ClosureReason = domain.ClosureReason(reason)
	if dep != nil || mon != nil || term != nil || fin != nil {
		terms := &domain.LeaseTerms{}
		if dep != nil {
			terms.Deposit = *dep
		}
		if mon != nil {
			terms.MonthlyPayment = *mon
		}
		if term != nil {
			terms.TermMonths = *term
		}
		if fin != nil {
			terms.FinalPayment = *fin
		}
		l.LeaseTerms = terms
	}
	return l, nil
}

// GetByCarID retrieves a listing by its marketplace identity.
func (s *ListingStore) GetByCarID(ctx context.Context, carID string) (domain.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+listingCols+` FROM listings WHERE car_id = $1`, carID)
	l, err := scanListing(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("postgres: get listing %s: %w", carID, err)
	}
	return l, nil
}

// ListActive returns active listings, most recently updated first.
func (s *ListingStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Listing, error) {
	query := `SELECT ` + listingCols + ` FROM listings WHERE NOT is_closed ORDER BY last_updated DESC`
	args := []any{}
	if opts.Limit > 0 {
		query += ` LIMIT $1`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET $2`
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active listings: %w", err)
	}
	defer rows.Close()
	return collectListings(rows, "list active listings")
}

// ListActiveOlderThan returns active listings first seen before the
// cutoff, oldest first.
func (s *ListingStore) ListActiveOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+listingCols+` FROM listings
		 WHERE NOT is_closed AND first_seen < $1
		 ORDER BY first_seen ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list aged listings: %w", err)
	}
	defer rows.Close()
	return collectListings(rows, "list aged listings")
}

func collectListings(rows pgx.Rows, op string) ([]domain.Listing, error) {
	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", op, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s rows: %w", op, err)
	}
	return out, nil
}

// MarkClosed performs the one-way active to closed transition. Closing
// an already closed listing leaves the original closure record intact.
func (s *ListingStore) MarkClosed(ctx context.Context, carID string, reason domain.ClosureReason, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE listings
		 SET is_closed = TRUE, closure_reason = $2, closure_detected_at = $3
		 WHERE car_id = $1 AND NOT is_closed`,
		carID, string(reason), at)
	if err != nil {
		return fmt.Errorf("postgres: mark closed %s: %w", carID, err)
	}
	return nil
}

// ConsumeTrulyNew returns the truly-new coupe listings first seen inside
// the window and clears the flag on every returned row in the same
// statement, so a listing is reported at most once.
func (s *ListingStore) ConsumeTrulyNew(ctx context.Context, window time.Duration) ([]domain.Listing, error) {
	cutoff := time.Now().Add(-window)
	rows, err := s.pool.Query(ctx,
		`UPDATE listings SET is_truly_new = FALSE
		 WHERE is_truly_new AND is_coupe AND NOT is_closed AND first_seen >= $1
		 RETURNING `+listingCols, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: consume truly new: %w", err)
	}
	defer rows.Close()

	out, err := collectListings(rows, "consume truly new")
	if err != nil {
		return nil, err
	}
	// The RETURNING clause reflects the cleared flag; restore it on the
	// returned copies so callers see what was consumed.
	for i := range out {
		out[i].IsTrulyNew = true
	}
	return out, nil
}

// UpdateEnrichment writes browser-sourced detail fields.
func (s *ListingStore) UpdateEnrichment(ctx context.Context, l domain.Listing) error {
	var dep, mon, fin *float64
	var term *int
	if l.LeaseTerms != nil {
		dep, mon, fin = &l.LeaseTerms.Deposit, &l.LeaseTerms.MonthlyPayment, &l.LeaseTerms.FinalPayment
		term = &l.LeaseTerms.TermMonths
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE listings SET
			views = $2,
			registration_date = $3,
			days_since_registration = $4,
			is_lease = $5,
			true_price = $6,
			lease_deposit = $7,
			lease_monthly = $8,
			lease_term_months = $9,
			lease_final = $10,
			last_updated = NOW()
		 WHERE car_id = $1`,
		l.CarID, l.Views, l.RegistrationDate, l.DaysSinceRegistration,
		l.IsLease, l.TruePrice, dep, mon, term, fin)
	if err != nil {
		return fmt.Errorf("postgres: update enrichment %s: %w", l.CarID, err)
	}
	return nil
}

// Count returns the total number of tracked listings.
func (s *ListingStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM listings").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count listings: %w", err)
	}
	return count, nil
}

// Stats returns an aggregate snapshot of the store.
func (s *ListingStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	var st domain.StoreStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE NOT is_closed),
			COUNT(*) FILTER (WHERE is_closed),
			COUNT(*) FILTER (WHERE is_lease),
			COUNT(*) FILTER (WHERE is_truly_new),
			COALESCE(MIN(first_seen), 'epoch'::timestamptz),
			COALESCE(MAX(first_seen), 'epoch'::timestamptz)
		FROM listings`).Scan(
		&st.Total, &st.Active, &st.Closed, &st.Leases, &st.TrulyNew,
		&st.OldestFirst, &st.NewestFirst)
	if err != nil {
		return domain.StoreStats{}, fmt.Errorf("postgres: listing stats: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT closure_reason, COUNT(*)
		FROM listings WHERE is_closed GROUP BY closure_reason`)
	if err != nil {
		return domain.StoreStats{}, fmt.Errorf("postgres: closure stats: %w", err)
	}
	defer rows.Close()

	st.ByClosure = make(map[domain.ClosureReason]int64)
	for rows.Next() {
		var reason string
		var n int64
		if err := rows.Scan(&reason, &n); err != nil {
			return domain.StoreStats{}, fmt.Errorf("postgres: scan closure stats: %w", err)
		}
		st.ByClosure[domain.ClosureReason(reason)] = n
	}
	if err := rows.Err(); err != nil {
		return domain.StoreStats{}, fmt.Errorf("postgres: closure stats rows: %w", err)
	}
	return st, nil
}

// DeleteStale removes listings last updated before the cutoff that have
// accumulated real traffic and were never flagged truly-new.
func (s *ListingStore) DeleteStale(ctx context.Context, cutoff time.Time, minViews int) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM listings
		 WHERE last_updated < $1 AND views > $2 AND NOT is_truly_new`,
		cutoff, minViews)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete stale listings: %w", err)
	}
	return tag.RowsAffected(), nil
}
