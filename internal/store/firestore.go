package store

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/money"
	"storefront/internal/util"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"go.uber.org/zap"
)

// Firestore implements Store on Cloud Firestore. Subscriptions map directly
// onto query snapshot listeners: every change pushes the full result set.
// Currency is stored as decimal numbers in the documents and converted to
// centavos at the boundary.
type Firestore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestore connects to the given project.
func NewFirestore(ctx context.Context, projectID string) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, persistErr("connect", "firestore", err)
	}
	return &Firestore{client: client, logger: util.Named("store.firestore")}, nil
}

// Close closes the underlying client.
func (f *Firestore) Close() error {
	return f.client.Close()
}

type fsOrderLine struct {
	Name     string  `firestore:"name"`
	Price    float64 `firestore:"price"`
	Quantity int     `firestore:"quantity"`
	Note     string  `firestore:"observation"`
	Category string  `firestore:"category"`
}

type fsOrder struct {
	UserID       *string       `firestore:"userId"`
	CustomerName string        `firestore:"customerName"`
	Mode         string        `firestore:"deliveryMode"`
	Address      string        `firestore:"address"`
	ZoneName     string        `firestore:"deliveryBairro"`
	Items        []fsOrderLine `firestore:"items"`
	Subtotal     float64       `firestore:"subtotal"`
	DeliveryFee  float64       `firestore:"deliveryFee"`
	Total        float64       `firestore:"total"`
	Status       string        `firestore:"status"`
	CreatedAt    time.Time     `firestore:"createdAt,serverTimestamp"`
	UpdatedAt    time.Time     `firestore:"updatedAt,serverTimestamp"`
}

func toFsOrder(o *models.Order) fsOrder {
	items := make([]fsOrderLine, 0, len(o.Items))
	for _, l := range o.Items {
		items = append(items, fsOrderLine{
			Name:     l.Name,
			Price:    money.ToFloat(l.Price),
			Quantity: l.Quantity,
			Note:     l.Note,
			Category: l.Category,
		})
	}
	return fsOrder{
		UserID:       o.UserID,
		CustomerName: o.CustomerName,
		Mode:         o.Mode,
		Address:      o.Address,
		ZoneName:     o.ZoneName,
		Items:        items,
		Subtotal:     money.ToFloat(o.Subtotal),
		DeliveryFee:  money.ToFloat(o.DeliveryFee),
		Total:        money.ToFloat(o.Total),
		Status:       o.Status,
	}
}

func fromFsOrder(id string, d fsOrder) models.Order {
	items := make([]models.OrderLine, 0, len(d.Items))
	for _, l := range d.Items {
		items = append(items, models.OrderLine{
			Name:     l.Name,
			Price:    money.FromFloat(l.Price),
			Quantity: l.Quantity,
			Note:     l.Note,
			Category: l.Category,
		})
	}
	return models.Order{
		ID:           id,
		UserID:       d.UserID,
		CustomerName: d.CustomerName,
		Mode:         d.Mode,
		Address:      d.Address,
		ZoneName:     d.ZoneName,
		Items:        items,
		Subtotal:     money.FromFloat(d.Subtotal),
		DeliveryFee:  money.FromFloat(d.DeliveryFee),
		Total:        money.FromFloat(d.Total),
		Status:       d.Status,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (f *Firestore) CreateOrder(ctx context.Context, o *models.Order) (string, error) {
	ref, _, err := f.client.Collection(CollectionOrders).Add(ctx, toFsOrder(o))
	if err != nil {
		return "", persistErr("create", CollectionOrders, err)
	}
	return ref.ID, nil
}

func (f *Firestore) UpdateOrderStatus(ctx context.Context, id string, upd models.OrderStatusUpdate) error {
	_, err := f.client.Collection(CollectionOrders).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: upd.Status},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return persistErr("update", CollectionOrders, err)
	}
	return nil
}

func (f *Firestore) Orders(ctx context.Context) ([]models.Order, error) {
	return f.queryOrders(ctx, f.ordersQuery(""))
}

func (f *Firestore) ordersQuery(uid string) firestore.Query {
	q := f.client.Collection(CollectionOrders).Query
	if uid != "" {
		q = q.Where("userId", "==", uid)
	}
	return q.OrderBy("createdAt", firestore.Desc)
}

func (f *Firestore) queryOrders(ctx context.Context, q firestore.Query) ([]models.Order, error) {
	it := q.Documents(ctx)
	defer it.Stop()

	var orders []models.Order
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, persistErr("query", CollectionOrders, err)
		}
		var d fsOrder
		if err := doc.DataTo(&d); err != nil {
			return nil, persistErr("query", CollectionOrders, err)
		}
		orders = append(orders, fromFsOrder(doc.Ref.ID, d))
	}
	return orders, nil
}

func (f *Firestore) SubscribeOrders(ctx context.Context) (*Feed[[]models.Order], error) {
	return f.subscribeOrderQuery(ctx, f.ordersQuery(""))
}

func (f *Firestore) SubscribeUserOrders(ctx context.Context, uid string) (*Feed[[]models.Order], error) {
	return f.subscribeOrderQuery(ctx, f.ordersQuery(uid))
}

func (f *Firestore) subscribeOrderQuery(ctx context.Context, q firestore.Query) (*Feed[[]models.Order], error) {
	subCtx, cancel := context.WithCancel(ctx)
	feed := newFeed[[]models.Order](cancel)

	go func() {
		snaps := q.Snapshots(subCtx)
		defer snaps.Stop()
		for {
			qs, err := snaps.Next()
			if err != nil {
				if subCtx.Err() == nil {
					f.logger.Warn("Order snapshot stream ended", zap.Error(err))
				}
				return
			}

			var orders []models.Order
			failed := false
			for {
				doc, err := qs.Documents.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					f.logger.Warn("Failed reading order snapshot", zap.Error(err))
					failed = true
					break
				}
				var d fsOrder
				if err := doc.DataTo(&d); err != nil {
					f.logger.Warn("Failed decoding order document", zap.String("id", doc.Ref.ID), zap.Error(err))
					continue
				}
				orders = append(orders, fromFsOrder(doc.Ref.ID, d))
			}
			if !failed {
				feed.push(orders)
			}
		}
	}()

	return feed, nil
}

type fsProduct struct {
	Name        string    `firestore:"name"`
	Description string    `firestore:"description"`
	Price       float64   `firestore:"price"`
	Category    string    `firestore:"category"`
	Image       string    `firestore:"image"`
	IsNew       bool      `firestore:"isNew"`
	IsPaused    bool      `firestore:"isPaused"`
	Rating      float64   `firestore:"rating"`
	Reviews     int       `firestore:"reviews"`
	CreatedAt   time.Time `firestore:"createdAt,serverTimestamp"`
}

func fromFsProduct(id string, d fsProduct) models.Product {
	return models.Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Price:       money.FromFloat(d.Price),
		Category:    d.Category,
		Image:       d.Image,
		IsNew:       d.IsNew,
		IsPaused:    d.IsPaused,
		Rating:      d.Rating,
		Reviews:     d.Reviews,
		CreatedAt:   d.CreatedAt,
	}
}

func (f *Firestore) CreateProduct(ctx context.Context, p *models.Product) (string, error) {
	ref, _, err := f.client.Collection(CollectionProducts).Add(ctx, fsProduct{
		Name:        p.Name,
		Description: p.Description,
		Price:       money.ToFloat(p.Price),
		Category:    p.Category,
		Image:       p.Image,
		IsNew:       p.IsNew,
		IsPaused:    p.IsPaused,
		Rating:      p.Rating,
		Reviews:     p.Reviews,
	})
	if err != nil {
		return "", persistErr("create", CollectionProducts, err)
	}
	return ref.ID, nil
}

func (f *Firestore) UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) error {
	var updates []firestore.Update
	if upd.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *upd.Name})
	}
	if upd.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *upd.Description})
	}
	if upd.Price != nil {
		updates = append(updates, firestore.Update{Path: "price", Value: money.ToFloat(*upd.Price)})
	}
	if upd.Category != nil {
		updates = append(updates, firestore.Update{Path: "category", Value: *upd.Category})
	}
	if upd.Image != nil {
		updates = append(updates, firestore.Update{Path: "image", Value: *upd.Image})
	}
	if upd.IsNew != nil {
		updates = append(updates, firestore.Update{Path: "isNew", Value: *upd.IsNew})
	}
	if upd.IsPaused != nil {
		updates = append(updates, firestore.Update{Path: "isPaused", Value: *upd.IsPaused})
	}
	if len(updates) == 0 {
		return nil
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})

	if _, err := f.client.Collection(CollectionProducts).Doc(id).Update(ctx, updates); err != nil {
		return persistErr("update", CollectionProducts, err)
	}
	return nil
}

func (f *Firestore) DeleteProduct(ctx context.Context, id string) error {
	if _, err := f.client.Collection(CollectionProducts).Doc(id).Delete(ctx); err != nil {
		return persistErr("delete", CollectionProducts, err)
	}
	return nil
}

func (f *Firestore) SubscribeProducts(ctx context.Context) (*Feed[[]models.Product], error) {
	q := f.client.Collection(CollectionProducts).Query.OrderBy("createdAt", firestore.Desc)
	return subscribeQuery(ctx, f, q, CollectionProducts, func(id string, doc *firestore.DocumentSnapshot) (models.Product, error) {
		var d fsProduct
		if err := doc.DataTo(&d); err != nil {
			return models.Product{}, err
		}
		return fromFsProduct(id, d), nil
	})
}

type fsZone struct {
	Name      string    `firestore:"name"`
	Fee       float64   `firestore:"price"`
	TimeEst   string    `firestore:"time"`
	Active    bool      `firestore:"active"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

func (f *Firestore) CreateZone(ctx context.Context, z *models.DeliveryZone) (string, error) {
	ref, _, err := f.client.Collection(CollectionZones).Add(ctx, fsZone{
		Name:    z.Name,
		Fee:     money.ToFloat(z.Fee),
		TimeEst: z.TimeEst,
		Active:  z.Active,
	})
	if err != nil {
		return "", persistErr("create", CollectionZones, err)
	}
	return ref.ID, nil
}

func (f *Firestore) UpdateZone(ctx context.Context, id string, upd models.ZoneUpdate) error {
	var updates []firestore.Update
	if upd.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *upd.Name})
	}
	if upd.Fee != nil {
		updates = append(updates, firestore.Update{Path: "price", Value: money.ToFloat(*upd.Fee)})
	}
	if upd.TimeEst != nil {
		updates = append(updates, firestore.Update{Path: "time", Value: *upd.TimeEst})
	}
	if upd.Active != nil {
		updates = append(updates, firestore.Update{Path: "active", Value: *upd.Active})
	}
	if len(updates) == 0 {
		return nil
	}

	if _, err := f.client.Collection(CollectionZones).Doc(id).Update(ctx, updates); err != nil {
		return persistErr("update", CollectionZones, err)
	}
	return nil
}

func (f *Firestore) DeleteZone(ctx context.Context, id string) error {
	if _, err := f.client.Collection(CollectionZones).Doc(id).Delete(ctx); err != nil {
		return persistErr("delete", CollectionZones, err)
	}
	return nil
}

func (f *Firestore) SubscribeZones(ctx context.Context) (*Feed[[]models.DeliveryZone], error) {
	q := f.client.Collection(CollectionZones).Query.OrderBy("createdAt", firestore.Asc)
	return subscribeQuery(ctx, f, q, CollectionZones, func(id string, doc *firestore.DocumentSnapshot) (models.DeliveryZone, error) {
		var d fsZone
		if err := doc.DataTo(&d); err != nil {
			return models.DeliveryZone{}, err
		}
		return models.DeliveryZone{
			ID:        id,
			Name:      d.Name,
			Fee:       money.FromFloat(d.Fee),
			TimeEst:   d.TimeEst,
			Active:    d.Active,
			CreatedAt: d.CreatedAt,
		}, nil
	})
}

type fsSettings struct {
	StoreName      string          `firestore:"storeName"`
	IsOpen         bool            `firestore:"isOpen"`
	WhatsApp       string          `firestore:"whatsapp"`
	Address        string          `firestore:"address"`
	WeekdayHours   string          `firestore:"weekdayHours"`
	WeekendHours   string          `firestore:"weekendHours"`
	PaymentMethods map[string]bool `firestore:"paymentMethods"`
}

func (f *Firestore) settingsDoc() *firestore.DocumentRef {
	return f.client.Collection(CollectionSettings).Doc(settingsRowID)
}

func (f *Firestore) Settings(ctx context.Context) (*models.Settings, error) {
	doc, err := f.settingsDoc().Get(ctx)
	if err != nil {
		return nil, persistErr("query", CollectionSettings, err)
	}

	var d fsSettings
	if err := doc.DataTo(&d); err != nil {
		return nil, persistErr("query", CollectionSettings, err)
	}
	return &models.Settings{
		StoreName:      d.StoreName,
		IsOpen:         d.IsOpen,
		WhatsApp:       d.WhatsApp,
		Address:        d.Address,
		WeekdayHours:   d.WeekdayHours,
		WeekendHours:   d.WeekendHours,
		PaymentMethods: d.PaymentMethods,
	}, nil
}

func (f *Firestore) UpdateSettings(ctx context.Context, upd models.SettingsUpdate) error {
	var updates []firestore.Update
	if upd.StoreName != nil {
		updates = append(updates, firestore.Update{Path: "storeName", Value: *upd.StoreName})
	}
	if upd.IsOpen != nil {
		updates = append(updates, firestore.Update{Path: "isOpen", Value: *upd.IsOpen})
	}
	if upd.WhatsApp != nil {
		updates = append(updates, firestore.Update{Path: "whatsapp", Value: *upd.WhatsApp})
	}
	if upd.Address != nil {
		updates = append(updates, firestore.Update{Path: "address", Value: *upd.Address})
	}
	if upd.WeekdayHours != nil {
		updates = append(updates, firestore.Update{Path: "weekdayHours", Value: *upd.WeekdayHours})
	}
	if upd.WeekendHours != nil {
		updates = append(updates, firestore.Update{Path: "weekendHours", Value: *upd.WeekendHours})
	}
	if upd.PaymentMethods != nil {
		updates = append(updates, firestore.Update{Path: "paymentMethods", Value: upd.PaymentMethods})
	}
	if len(updates) == 0 {
		return nil
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})

	if _, err := f.settingsDoc().Update(ctx, updates); err != nil {
		return persistErr("update", CollectionSettings, err)
	}
	return nil
}

func (f *Firestore) SubscribeSettings(ctx context.Context) (*Feed[models.Settings], error) {
	subCtx, cancel := context.WithCancel(ctx)
	feed := newFeed[models.Settings](cancel)

	go func() {
		snaps := f.settingsDoc().Snapshots(subCtx)
		defer snaps.Stop()
		for {
			doc, err := snaps.Next()
			if err != nil {
				if subCtx.Err() == nil {
					f.logger.Warn("Settings snapshot stream ended", zap.Error(err))
				}
				return
			}
			if !doc.Exists() {
				continue
			}
			var d fsSettings
			if err := doc.DataTo(&d); err != nil {
				f.logger.Warn("Failed decoding settings document", zap.Error(err))
				continue
			}
			feed.push(models.Settings{
				StoreName:      d.StoreName,
				IsOpen:         d.IsOpen,
				WhatsApp:       d.WhatsApp,
				Address:        d.Address,
				WeekdayHours:   d.WeekdayHours,
				WeekendHours:   d.WeekendHours,
				PaymentMethods: d.PaymentMethods,
			})
		}
	}()

	return feed, nil
}

type fsUserProfile struct {
	UID         string    `firestore:"uid"`
	Email       string    `firestore:"email"`
	DisplayName string    `firestore:"displayName"`
	Phone       string    `firestore:"phone"`
	Role        string    `firestore:"role"`
	CreatedAt   time.Time `firestore:"createdAt,serverTimestamp"`
}

func (f *Firestore) CreateUserProfile(ctx context.Context, p *models.UserProfile) (string, error) {
	ref, _, err := f.client.Collection(CollectionUsers).Add(ctx, fsUserProfile{
		UID:         p.UID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Phone:       p.Phone,
		Role:        p.Role,
	})
	if err != nil {
		return "", persistErr("create", CollectionUsers, err)
	}
	return ref.ID, nil
}

func (f *Firestore) UserProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	it := f.client.Collection(CollectionUsers).Where("uid", "==", uid).Limit(1).Documents(ctx)
	defer it.Stop()

	doc, err := it.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("query", CollectionUsers, err)
	}

	var d fsUserProfile
	if err := doc.DataTo(&d); err != nil {
		return nil, persistErr("query", CollectionUsers, err)
	}
	return &models.UserProfile{
		ID:          doc.Ref.ID,
		UID:         d.UID,
		Email:       d.Email,
		DisplayName: d.DisplayName,
		Phone:       d.Phone,
		Role:        d.Role,
		CreatedAt:   d.CreatedAt,
	}, nil
}

// subscribeQuery adapts a firestore query snapshot stream to a Feed.
func subscribeQuery[T any](ctx context.Context, f *Firestore, q firestore.Query, collection string, decode func(string, *firestore.DocumentSnapshot) (T, error)) (*Feed[[]T], error) {
	subCtx, cancel := context.WithCancel(ctx)
	feed := newFeed[[]T](cancel)

	go func() {
		snaps := q.Snapshots(subCtx)
		defer snaps.Stop()
		for {
			qs, err := snaps.Next()
			if err != nil {
				if subCtx.Err() == nil {
					f.logger.Warn("Snapshot stream ended",
						zap.String("collection", collection), zap.Error(err))
				}
				return
			}

			var out []T
			failed := false
			for {
				doc, err := qs.Documents.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					f.logger.Warn("Failed reading snapshot",
						zap.String("collection", collection), zap.Error(err))
					failed = true
					break
				}
				item, err := decode(doc.Ref.ID, doc)
				if err != nil {
					f.logger.Warn("Failed decoding document",
						zap.String("collection", collection),
						zap.String("id", doc.Ref.ID), zap.Error(err))
					continue
				}
				out = append(out, item)
			}
			if !failed {
				feed.push(out)
			}
		}
	}()

	return feed, nil
}
