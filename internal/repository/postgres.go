package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"commerce/internal/domain"
)

//go:embed migrations/*.up.sql
var migrationsFS embed.FS

// querier общее подмножество pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTxKey struct{}

// Postgres хранилище документов поверх pgxpool. Вложенные структуры лежат в JSONB.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

// Connect открывает пул и проверяет соединение
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

func (pg *Postgres) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return pg.pool
}

// WithTransaction открывает транзакцию и кладёт её в контекст; вложенные вызовы переиспользуют её.
// Действия AfterCommit выполняются только после успешного коммита.
func (pg *Postgres) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	tx, err := pg.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	txCtx, st := beginTxState(context.WithValue(ctx, pgTxKey{}, tx))
	if err := fn(txCtx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err, "commit transaction")
	}
	st.committed()
	return nil
}

// lockClause: внутри транзакции чтение по id блокирует строку до коммита,
// поэтому чтение-изменение-запись не теряет параллельные обновления
func lockClause(ctx context.Context) string {
	if _, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return " FOR UPDATE"
	}
	return ""
}

// Migrate применяет встроенные миграции, ещё не записанные в schema_migrations
func (pg *Postgres) Migrate(ctx context.Context) ([]string, error) {
	_, err := pg.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var applied []string
	for _, name := range names {
		var exists bool
		err := pg.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, name).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", name, err)
		}
		if exists {
			continue
		}
		sql, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return applied, fmt.Errorf("failed to read sql file %s: %w", name, err)
		}
		err = pg.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := pg.q(ctx).Exec(ctx, string(sql)); err != nil {
				return fmt.Errorf("failed to apply %s: %w", name, err)
			}
			_, err := pg.q(ctx).Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return applied, err
		}
		applied = append(applied, name)
	}
	return applied, nil
}

// mapPgError переводит ошибки драйвера в ошибки репозитория
func mapPgError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01": // unique_violation, serialization_failure, deadlock_detected
			return fmt.Errorf("%s: %w", what, ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Postgres как ProductRepository: таблица products
type PostgresProducts struct{ *Postgres }

var _ ProductRepository = PostgresProducts{}

const productColumns = `id, name, description, category, brand, image, price, discount_price,
	count_in_stock, is_featured, rating, num_reviews, reviews, created_at, updated_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price int64
		disc  *int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Brand, &p.Image, &price, &disc,
		&p.CountInStock, &p.IsFeatured, &p.Rating, &p.NumReviews, &p.Reviews, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Price = domain.Money(price)
	if disc != nil {
		d := domain.Money(*disc)
		p.DiscountPrice = &d
	}
	return &p, nil
}

func discountArg(p *domain.Product) *int64 {
	if p.DiscountPrice == nil {
		return nil
	}
	v := int64(*p.DiscountPrice)
	return &v
}

func reviewsArg(p *domain.Product) []domain.Review {
	if p.Reviews == nil {
		return []domain.Review{}
	}
	return p.Reviews
}

func (r PostgresProducts) Create(ctx context.Context, p *domain.Product) error {
	err := r.q(ctx).QueryRow(ctx, `
		INSERT INTO products (name, description, category, brand, image, price, discount_price,
			count_in_stock, is_featured, rating, num_reviews, reviews)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Description, p.Category, p.Brand, p.Image, int64(p.Price), discountArg(p),
		p.CountInStock, p.IsFeatured, p.Rating, p.NumReviews, reviewsArg(p),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapPgError(err, "create product")
}

func (r PostgresProducts) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(r.q(ctx).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`+lockClause(ctx), id))
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

func (r PostgresProducts) Update(ctx context.Context, p *domain.Product) error {
	err := r.q(ctx).QueryRow(ctx, `
		UPDATE products SET name = $2, description = $3, category = $4, brand = $5, image = $6,
			price = $7, discount_price = $8, count_in_stock = $9, is_featured = $10,
			rating = $11, num_reviews = $12, reviews = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Category, p.Brand, p.Image, int64(p.Price), discountArg(p),
		p.CountInStock, p.IsFeatured, p.Rating, p.NumReviews, reviewsArg(p),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapPgError(err, fmt.Sprintf("product %d", p.ID))
}

func (r PostgresProducts) Delete(ctx context.Context, id int64) error {
	tag, err := r.q(ctx).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err, fmt.Sprintf("delete product %d", id))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return nil
}

// DecrementStock compare-and-decrement одним UPDATE
func (r PostgresProducts) DecrementStock(ctx context.Context, id, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: decrement must be positive", domain.ErrValidation)
	}
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE products SET count_in_stock = count_in_stock - $2, updated_at = NOW()
		WHERE id = $1 AND count_in_stock >= $2`, id, qty)
	if err != nil {
		return mapPgError(err, fmt.Sprintf("decrement stock %d", id))
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.q(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return mapPgError(err, fmt.Sprintf("product %d", id))
	}
	if !exists {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return fmt.Errorf("product %d: %w", id, domain.ErrInsufficientStock)
}

func (r PostgresProducts) List(ctx context.Context, f ProductFilter) (ProductPage, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Keyword != "" {
		where = append(where, "name ILIKE '%' || "+arg(f.Keyword)+" || '%'")
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.MinPrice != nil {
		where = append(where, "price >= "+arg(int64(*f.MinPrice)))
	}
	if f.MaxPrice != nil {
		where = append(where, "price <= "+arg(int64(*f.MaxPrice)))
	}
	if f.Featured {
		where = append(where, "is_featured")
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM products`+cond, args...).Scan(&total); err != nil {
		return ProductPage{}, mapPgError(err, "count products")
	}

	page, size := normalizePaging(f)
	limit := arg(size)
	offset := arg((page - 1) * size)
	rows, err := r.q(ctx).Query(ctx, `SELECT `+productColumns+` FROM products`+cond+
		` ORDER BY created_at DESC, id DESC LIMIT `+limit+` OFFSET `+offset, args...)
	if err != nil {
		return ProductPage{}, mapPgError(err, "list products")
	}
	defer rows.Close()

	products := make([]domain.Product, 0, size)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return ProductPage{}, fmt.Errorf("failed to scan products: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return ProductPage{}, fmt.Errorf("failed to complete row iteration: %w", err)
	}
	pages := pageCount(total, size)
	return ProductPage{Products: products, Page: page, Pages: pages, Total: total, HasMore: page < pages}, nil
}

func (r PostgresProducts) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, mapPgError(err, "list categories")
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
