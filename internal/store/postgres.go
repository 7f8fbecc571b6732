package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Notification channels, one per live collection.
const (
	chanOrders   = "storefront_orders"
	chanProducts = "storefront_products"
	chanZones    = "storefront_zones"
	chanSettings = "storefront_settings"
)

const settingsRowID = "store"

var schema = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price       BIGINT NOT NULL,
	category    TEXT NOT NULL,
	image       TEXT NOT NULL DEFAULT '',
	is_new      BOOLEAN NOT NULL DEFAULT FALSE,
	is_paused   BOOLEAN NOT NULL DEFAULT FALSE,
	rating      DOUBLE PRECISION NOT NULL DEFAULT 5.0,
	reviews     INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS delivery_zones (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	fee        BIGINT NOT NULL,
	time_est   TEXT NOT NULL DEFAULT '',
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
	id            TEXT PRIMARY KEY,
	user_id       TEXT,
	customer_name TEXT NOT NULL,
	mode          TEXT NOT NULL,
	address       TEXT NOT NULL,
	zone_name     TEXT NOT NULL DEFAULT '',
	items         JSONB NOT NULL,
	subtotal      BIGINT NOT NULL,
	delivery_fee  BIGINT NOT NULL,
	total         BIGINT NOT NULL,
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS settings (
	id      TEXT PRIMARY KEY,
	payload JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS user_profiles (
	id           TEXT PRIMARY KEY,
	uid          TEXT NOT NULL UNIQUE,
	email        TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	role         TEXT NOT NULL DEFAULT 'customer',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Postgres implements Store on PostgreSQL. Live subscriptions ride on
// LISTEN/NOTIFY: each write notifies its collection channel and each
// subscription requeries the full result set per notification.
type Postgres struct {
	db     *sqlx.DB
	dsn    string
	logger *zap.Logger
}

// NewPostgres connects, applies the schema and seeds the settings row.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	p := &Postgres{db: db, dsn: dsn, logger: util.Named("store.postgres")}
	if err := p.seedSettings(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) seedSettings() error {
	payload, err := json.Marshal(models.DefaultSettings())
	if err != nil {
		return err
	}
	_, err = p.db.Exec(
		"INSERT INTO settings (id, payload) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING",
		settingsRowID, payload)
	return err
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) notify(ctx context.Context, channel string) {
	if _, err := p.db.ExecContext(ctx, "SELECT pg_notify($1, '')", channel); err != nil {
		p.logger.Warn("Failed to notify channel", zap.String("channel", channel), zap.Error(err))
	}
}

type orderRow struct {
	models.Order
	ItemsJSON []byte `db:"items"`
}

func (p *Postgres) CreateOrder(ctx context.Context, o *models.Order) (string, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return "", persistErr("create", CollectionOrders, err)
	}

	id := uuid.New().String()
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, customer_name, mode, address, zone_name,
			items, subtotal, delivery_fee, total, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, o.UserID, o.CustomerName, o.Mode, o.Address, o.ZoneName,
		items, o.Subtotal, o.DeliveryFee, o.Total, o.Status)
	if err != nil {
		return "", persistErr("create", CollectionOrders, err)
	}

	p.notify(ctx, chanOrders)
	return id, nil
}

func (p *Postgres) UpdateOrderStatus(ctx context.Context, id string, upd models.OrderStatusUpdate) error {
	res, err := p.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		upd.Status, id)
	if err != nil {
		return persistErr("update", CollectionOrders, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return persistErr("update", CollectionOrders, sql.ErrNoRows)
	}

	p.notify(ctx, chanOrders)
	return nil
}

func (p *Postgres) Orders(ctx context.Context) ([]models.Order, error) {
	return p.queryOrders(ctx, "")
}

func (p *Postgres) queryOrders(ctx context.Context, uid string) ([]models.Order, error) {
	query := "SELECT * FROM orders ORDER BY created_at DESC"
	args := []interface{}{}
	if uid != "" {
		query = "SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC"
		args = append(args, uid)
	}

	var rows []orderRow
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, persistErr("query", CollectionOrders, err)
	}

	orders := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		o := r.Order
		if err := json.Unmarshal(r.ItemsJSON, &o.Items); err != nil {
			return nil, persistErr("query", CollectionOrders, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (p *Postgres) SubscribeOrders(ctx context.Context) (*Feed[[]models.Order], error) {
	return subscribe(ctx, p, chanOrders, func(ctx context.Context) ([]models.Order, error) {
		return p.queryOrders(ctx, "")
	})
}

func (p *Postgres) SubscribeUserOrders(ctx context.Context, uid string) (*Feed[[]models.Order], error) {
	return subscribe(ctx, p, chanOrders, func(ctx context.Context) ([]models.Order, error) {
		return p.queryOrders(ctx, uid)
	})
}

func (p *Postgres) CreateProduct(ctx context.Context, prod *models.Product) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, category, image, is_new, is_paused, rating, reviews)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, prod.Name, prod.Description, prod.Price, prod.Category, prod.Image,
		prod.IsNew, prod.IsPaused, prod.Rating, prod.Reviews)
	if err != nil {
		return "", persistErr("create", CollectionProducts, err)
	}

	p.notify(ctx, chanProducts)
	return id, nil
}

func (p *Postgres) UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) error {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.Image != nil {
		add("image", *upd.Image)
	}
	if upd.IsNew != nil {
		add("is_new", *upd.IsNew)
	}
	if upd.IsPaused != nil {
		add("is_paused", *upd.IsPaused)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return persistErr("update", CollectionProducts, err)
	}

	p.notify(ctx, chanProducts)
	return nil
}

func (p *Postgres) DeleteProduct(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id); err != nil {
		return persistErr("delete", CollectionProducts, err)
	}
	p.notify(ctx, chanProducts)
	return nil
}

func (p *Postgres) SubscribeProducts(ctx context.Context) (*Feed[[]models.Product], error) {
	return subscribe(ctx, p, chanProducts, func(ctx context.Context) ([]models.Product, error) {
		var products []models.Product
		err := p.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY created_at DESC")
		if err != nil {
			return nil, persistErr("query", CollectionProducts, err)
		}
		return products, nil
	})
}

func (p *Postgres) CreateZone(ctx context.Context, z *models.DeliveryZone) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO delivery_zones (id, name, fee, time_est, active)
		VALUES ($1, $2, $3, $4, $5)`,
		id, z.Name, z.Fee, z.TimeEst, z.Active)
	if err != nil {
		return "", persistErr("create", CollectionZones, err)
	}

	p.notify(ctx, chanZones)
	return id, nil
}

func (p *Postgres) UpdateZone(ctx context.Context, id string, upd models.ZoneUpdate) error {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Fee != nil {
		add("fee", *upd.Fee)
	}
	if upd.TimeEst != nil {
		add("time_est", *upd.TimeEst)
	}
	if upd.Active != nil {
		add("active", *upd.Active)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE delivery_zones SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return persistErr("update", CollectionZones, err)
	}

	p.notify(ctx, chanZones)
	return nil
}

func (p *Postgres) DeleteZone(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM delivery_zones WHERE id = $1", id); err != nil {
		return persistErr("delete", CollectionZones, err)
	}
	p.notify(ctx, chanZones)
	return nil
}

func (p *Postgres) SubscribeZones(ctx context.Context) (*Feed[[]models.DeliveryZone], error) {
	return subscribe(ctx, p, chanZones, func(ctx context.Context) ([]models.DeliveryZone, error) {
		var zones []models.DeliveryZone
		err := p.db.SelectContext(ctx, &zones, "SELECT * FROM delivery_zones ORDER BY created_at")
		if err != nil {
			return nil, persistErr("query", CollectionZones, err)
		}
		return zones, nil
	})
}

func (p *Postgres) Settings(ctx context.Context) (*models.Settings, error) {
	var payload []byte
	err := p.db.GetContext(ctx, &payload, "SELECT payload FROM settings WHERE id = $1", settingsRowID)
	if err != nil {
		return nil, persistErr("query", CollectionSettings, err)
	}

	var s models.Settings
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, persistErr("query", CollectionSettings, err)
	}
	return &s, nil
}

func (p *Postgres) UpdateSettings(ctx context.Context, upd models.SettingsUpdate) error {
	current, err := p.Settings(ctx)
	if err != nil {
		return err
	}

	if upd.StoreName != nil {
		current.StoreName = *upd.StoreName
	}
	if upd.IsOpen != nil {
		current.IsOpen = *upd.IsOpen
	}
	if upd.WhatsApp != nil {
		current.WhatsApp = *upd.WhatsApp
	}
	if upd.Address != nil {
		current.Address = *upd.Address
	}
	if upd.WeekdayHours != nil {
		current.WeekdayHours = *upd.WeekdayHours
	}
	if upd.WeekendHours != nil {
		current.WeekendHours = *upd.WeekendHours
	}
	if upd.PaymentMethods != nil {
		current.PaymentMethods = upd.PaymentMethods
	}

	payload, err := json.Marshal(current)
	if err != nil {
		return persistErr("update", CollectionSettings, err)
	}
	if _, err := p.db.ExecContext(ctx,
		"UPDATE settings SET payload = $1 WHERE id = $2", payload, settingsRowID); err != nil {
		return persistErr("update", CollectionSettings, err)
	}

	p.notify(ctx, chanSettings)
	return nil
}

func (p *Postgres) SubscribeSettings(ctx context.Context) (*Feed[models.Settings], error) {
	return subscribe(ctx, p, chanSettings, func(ctx context.Context) (models.Settings, error) {
		s, err := p.Settings(ctx)
		if err != nil {
			return models.Settings{}, err
		}
		return *s, nil
	})
}

func (p *Postgres) CreateUserProfile(ctx context.Context, prof *models.UserProfile) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO user_profiles (id, uid, email, display_name, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, prof.UID, prof.Email, prof.DisplayName, prof.Phone, prof.Role)
	if err != nil {
		return "", persistErr("create", CollectionUsers, err)
	}
	return id, nil
}

func (p *Postgres) UserProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	var prof models.UserProfile
	err := p.db.GetContext(ctx, &prof, "SELECT * FROM user_profiles WHERE uid = $1", uid)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("query", CollectionUsers, err)
	}
	return &prof, nil
}

// subscribe wires a pq listener to a requery function: the feed gets one
// initial snapshot plus one fresh result set per NOTIFY on the channel.
func subscribe[T any](ctx context.Context, p *Postgres, channel string, query func(context.Context) (T, error)) (*Feed[T], error) {
	listener := pq.NewListener(p.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			p.logger.Warn("Listener event error", zap.String("channel", channel), zap.Error(err))
		}
	})
	if err := listener.Listen(channel); err != nil {
		listener.Close()
		return nil, persistErr("subscribe", channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	feed := newFeed[T](func() {
		cancel()
		listener.Close()
	})

	push := func() {
		snap, err := query(subCtx)
		if err != nil {
			if subCtx.Err() == nil {
				p.logger.Warn("Subscription requery failed", zap.String("channel", channel), zap.Error(err))
			}
			return
		}
		feed.push(snap)
	}

	go func() {
		push()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-feed.Done():
				return
			case <-listener.Notify:
				push()
			}
		}
	}()

	return feed, nil
}
