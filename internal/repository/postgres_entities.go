package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"commerce/internal/domain"
)

// PostgresCarts корзины, одна строка на пользователя
type PostgresCarts struct{ *Postgres }

var _ CartRepository = PostgresCarts{}

func (r PostgresCarts) GetByUser(ctx context.Context, userID int64) (*domain.Cart, error) {
	var (
		c     domain.Cart
		total int64
	)
	err := r.q(ctx).QueryRow(ctx, `
		SELECT user_id, lines, total_amount, version, updated_at FROM carts WHERE user_id = $1`+lockClause(ctx), userID,
	).Scan(&c.UserID, &c.Lines, &total, &c.Version, &c.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("cart of user %d", userID))
	}
	c.TotalAmount = domain.Money(total)
	if c.Lines == nil {
		c.Lines = []domain.CartLine{}
	}
	return &c, nil
}

// Save: версия 0 означает вставку новой корзины, иначе UPDATE с проверкой версии
func (r PostgresCarts) Save(ctx context.Context, c *domain.Cart) error {
	lines := c.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	var (
		tag pgconn.CommandTag
		err error
	)
	if c.Version == 0 {
		tag, err = r.q(ctx).Exec(ctx, `
			INSERT INTO carts (user_id, lines, total_amount, version, updated_at)
			VALUES ($1, $2, $3, 1, NOW())
			ON CONFLICT (user_id) DO NOTHING`, c.UserID, lines, int64(c.TotalAmount))
	} else {
		tag, err = r.q(ctx).Exec(ctx, `
			UPDATE carts SET lines = $2, total_amount = $3, version = version + 1, updated_at = NOW()
			WHERE user_id = $1 AND version = $4`, c.UserID, lines, int64(c.TotalAmount), c.Version)
	}
	if err != nil {
		return mapPgError(err, fmt.Sprintf("save cart of user %d", c.UserID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cart of user %d version %d: %w", c.UserID, c.Version, ErrConflict)
	}
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// PostgresOrders заказы
type PostgresOrders struct{ *Postgres }

var _ OrderRepository = PostgresOrders{}

const orderColumns = `id, user_id, items, shipping_address, items_price, tax_price, shipping_price,
	total_price, status, is_paid, paid_at, payment_intent_id, is_delivered, delivered_at,
	COALESCE(idempotency_key, ''), created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                       domain.Order
		items, tax, ship, total int64
		status                  string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Items, &o.ShippingAddress, &items, &tax, &ship, &total,
		&status, &o.IsPaid, &o.PaidAt, &o.PaymentIntentID, &o.IsDelivered, &o.DeliveredAt,
		&o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.ItemsPrice, o.TaxPrice, o.ShippingPrice, o.TotalPrice = domain.Money(items), domain.Money(tax), domain.Money(ship), domain.Money(total)
	o.Status = domain.OrderStatus(status)
	return &o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r PostgresOrders) Create(ctx context.Context, o *domain.Order) error {
	err := r.q(ctx).QueryRow(ctx, `
		INSERT INTO orders (user_id, items, shipping_address, items_price, tax_price, shipping_price,
			total_price, status, is_paid, paid_at, payment_intent_id, is_delivered, delivered_at, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		o.UserID, o.Items, o.ShippingAddress, int64(o.ItemsPrice), int64(o.TaxPrice), int64(o.ShippingPrice),
		int64(o.TotalPrice), string(o.Status), o.IsPaid, o.PaidAt, o.PaymentIntentID, o.IsDelivered,
		o.DeliveredAt, nullable(o.IdempotencyKey),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	return mapPgError(err, "create order")
}

func (r PostgresOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(r.q(ctx).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`+lockClause(ctx), id))
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("order %d", id))
	}
	return o, nil
}

func (r PostgresOrders) GetByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Order, error) {
	o, err := scanOrder(r.q(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND idempotency_key = $2`, userID, key))
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("order with key %q", key))
	}
	return o, nil
}

// Update меняет только статусные поля: позиции и суммы заказа неизменяемы
func (r PostgresOrders) Update(ctx context.Context, o *domain.Order) error {
	err := r.q(ctx).QueryRow(ctx, `
		UPDATE orders SET status = $2, is_paid = $3, paid_at = $4, payment_intent_id = $5,
			is_delivered = $6, delivered_at = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		o.ID, string(o.Status), o.IsPaid, o.PaidAt, o.PaymentIntentID, o.IsDelivered, o.DeliveredAt,
	).Scan(&o.UpdatedAt)
	return mapPgError(err, fmt.Sprintf("order %d", o.ID))
}

func (r PostgresOrders) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY id DESC`, userID)
}

func (r PostgresOrders) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id DESC`)
}

func (r PostgresOrders) list(ctx context.Context, sql string, args ...any) ([]domain.Order, error) {
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err, "list orders")
	}
	defer rows.Close()
	out := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan orders: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// PostgresPayments журнал платежей; intent_id уникален
type PostgresPayments struct{ *Postgres }

var _ PaymentRepository = PostgresPayments{}

func (r PostgresPayments) Create(ctx context.Context, p *domain.Payment) error {
	err := r.q(ctx).QueryRow(ctx, `
		INSERT INTO payments (user_id, kind, ref_id, amount, currency, intent_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		p.UserID, string(p.Kind), p.RefID, int64(p.Amount), p.Currency, p.IntentID, p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	return mapPgError(err, fmt.Sprintf("payment %q", p.IntentID))
}

func (r PostgresPayments) GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	var (
		p      domain.Payment
		kind   string
		amount int64
	)
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, user_id, kind, ref_id, amount, currency, intent_id, status, created_at
		FROM payments WHERE intent_id = $1`, intentID,
	).Scan(&p.ID, &p.UserID, &kind, &p.RefID, &amount, &p.Currency, &p.IntentID, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("payment %q", intentID))
	}
	p.Kind = domain.PaymentKind(kind)
	p.Amount = domain.Money(amount)
	return &p, nil
}

// PostgresCourses курсы
type PostgresCourses struct{ *Postgres }

var _ CourseRepository = PostgresCourses{}

const courseColumns = `id, title, description, category, level, instructor_id, price, thumbnail, videos,
	is_published, enrolled_students, created_at`

func scanCourse(row pgx.Row) (*domain.Course, error) {
	var (
		c     domain.Course
		price int64
	)
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.Level, &c.InstructorID, &price,
		&c.Thumbnail, &c.Videos, &c.IsPublished, &c.EnrolledStudents, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Price = domain.Money(price)
	return &c, nil
}

func enrolledArg(c *domain.Course) []int64 {
	if c.EnrolledStudents == nil {
		return []int64{}
	}
	return c.EnrolledStudents
}

func videosArg(c *domain.Course) []domain.Video {
	if c.Videos == nil {
		return []domain.Video{}
	}
	return c.Videos
}

func (r PostgresCourses) Create(ctx context.Context, c *domain.Course) error {
	err := r.q(ctx).QueryRow(ctx, `
		INSERT INTO courses (title, description, category, level, instructor_id, price, thumbnail, videos,
			is_published, enrolled_students)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		c.Title, c.Description, c.Category, c.Level, c.InstructorID, int64(c.Price), c.Thumbnail, videosArg(c),
		c.IsPublished, enrolledArg(c),
	).Scan(&c.ID, &c.CreatedAt)
	return mapPgError(err, "create course")
}

func (r PostgresCourses) GetByID(ctx context.Context, id int64) (*domain.Course, error) {
	c, err := scanCourse(r.q(ctx).QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`+lockClause(ctx), id))
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("course %d", id))
	}
	return c, nil
}

func (r PostgresCourses) Update(ctx context.Context, c *domain.Course) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE courses SET title = $2, description = $3, category = $4, level = $5, price = $6,
			thumbnail = $7, videos = $8, is_published = $9, enrolled_students = $10
		WHERE id = $1`,
		c.ID, c.Title, c.Description, c.Category, c.Level, int64(c.Price), c.Thumbnail, videosArg(c),
		c.IsPublished, enrolledArg(c))
	if err != nil {
		return mapPgError(err, fmt.Sprintf("course %d", c.ID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("course %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

func (r PostgresCourses) ListPublished(ctx context.Context) ([]domain.Course, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT `+courseColumns+` FROM courses WHERE is_published ORDER BY id`)
	if err != nil {
		return nil, mapPgError(err, "list courses")
	}
	defer rows.Close()
	out := make([]domain.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan courses: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// PostgresQuizzes тесты; вопросы в JSONB
type PostgresQuizzes struct{ *Postgres }

var _ QuizRepository = PostgresQuizzes{}

func (r PostgresQuizzes) Create(ctx context.Context, q *domain.Quiz) error {
	err := r.q(ctx).QueryRow(ctx, `
		INSERT INTO quizzes (course_id, title, questions, time_limit, passing_score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		q.CourseID, q.Title, q.Questions, q.TimeLimitMinutes, q.PassingScore,
	).Scan(&q.ID, &q.CreatedAt)
	return mapPgError(err, "create quiz")
}

func (r PostgresQuizzes) GetByID(ctx context.Context, id int64) (*domain.Quiz, error) {
	var q domain.Quiz
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, course_id, title, questions, time_limit, passing_score, created_at
		FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.CourseID, &q.Title, &q.Questions, &q.TimeLimitMinutes, &q.PassingScore, &q.CreatedAt)
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("quiz %d", id))
	}
	return &q, nil
}

// PostgresCertificates сертификаты; UNIQUE (user_id, quiz_id) и UNIQUE number
type PostgresCertificates struct{ *Postgres }

var _ CertificateRepository = PostgresCertificates{}

const certColumns = `id, number, user_id, course_id, quiz_id, score, total_points, percentage, issued_at`

func scanCertificate(row pgx.Row) (*domain.Certificate, error) {
	var c domain.Certificate
	err := row.Scan(&c.ID, &c.Number, &c.UserID, &c.CourseID, &c.QuizID, &c.Score, &c.TotalPoints, &c.Percentage, &c.IssuedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r PostgresCertificates) Create(ctx context.Context, c *domain.Certificate) error {
	err := r.q(ctx).QueryRow(ctx, `
		INSERT INTO certificates (number, user_id, course_id, quiz_id, score, total_points, percentage, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		c.Number, c.UserID, c.CourseID, c.QuizID, c.Score, c.TotalPoints, c.Percentage, c.IssuedAt,
	).Scan(&c.ID)
	return mapPgError(err, fmt.Sprintf("certificate for user %d quiz %d", c.UserID, c.QuizID))
}

func (r PostgresCertificates) GetByID(ctx context.Context, id int64) (*domain.Certificate, error) {
	c, err := scanCertificate(r.q(ctx).QueryRow(ctx, `SELECT `+certColumns+` FROM certificates WHERE id = $1`, id))
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("certificate %d", id))
	}
	return c, nil
}

func (r PostgresCertificates) GetByUserQuiz(ctx context.Context, userID, quizID int64) (*domain.Certificate, error) {
	c, err := scanCertificate(r.q(ctx).QueryRow(ctx,
		`SELECT `+certColumns+` FROM certificates WHERE user_id = $1 AND quiz_id = $2`, userID, quizID))
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("certificate for user %d quiz %d", userID, quizID))
	}
	return c, nil
}

func (r PostgresCertificates) ListByUser(ctx context.Context, userID int64) ([]domain.Certificate, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT `+certColumns+` FROM certificates WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, mapPgError(err, "list certificates")
	}
	defer rows.Close()
	out := make([]domain.Certificate, 0)
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificates: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
