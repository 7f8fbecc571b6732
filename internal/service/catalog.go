package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/state"
	"storefront/internal/store"
	"storefront/internal/util"
)

// CatalogService covers the operator's catalog, delivery zone and settings
// edits. Mirrors refresh through the live subscriptions; these methods only
// write and toast.
type CatalogService struct {
	app    *state.App
	store  store.Store
	logger *zap.Logger
}

func NewCatalogService(app *state.App, st store.Store) *CatalogService {
	return &CatalogService{app: app, store: st, logger: util.Named("service")}
}

func (s *CatalogService) observeWrite(collection string, start time.Time) {
	util.StoreWriteLatency.WithLabelValues(collection).Observe(time.Since(start).Seconds())
}

// CreateProduct adds a catalog item.
func (s *CatalogService) CreateProduct(ctx context.Context, p *models.Product) (string, error) {
	start := time.Now()
	id, err := s.store.CreateProduct(ctx, p)
	s.observeWrite(store.CollectionProducts, start)
	if err != nil {
		s.app.Toasts().Error("Erro", "Falha ao adicionar produto")
		return "", err
	}
	s.app.Toasts().Success("Cardápio", fmt.Sprintf("%q adicionado!", p.Name))
	return id, nil
}

// UpdateProduct edits a catalog item.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) error {
	start := time.Now()
	err := s.store.UpdateProduct(ctx, id, upd)
	s.observeWrite(store.CollectionProducts, start)
	if err != nil {
		s.app.Toasts().Error("Erro", "Falha ao atualizar produto")
		return err
	}
	s.app.Toasts().Success("Cardápio", "Produto atualizado.")
	return nil
}

// ToggleProductPause flips a product's availability and announces the new
// state to the operator.
func (s *CatalogService) ToggleProductPause(ctx context.Context, id string) error {
	product, ok := s.app.ProductByID(id)
	if !ok {
		return ErrProductNotFound
	}

	paused := !product.IsPaused
	start := time.Now()
	err := s.store.UpdateProduct(ctx, id, models.ProductUpdate{IsPaused: &paused})
	s.observeWrite(store.CollectionProducts, start)
	if err != nil {
		s.app.Toasts().Error("Erro", "Falha ao atualizar produto")
		return err
	}

	if paused {
		s.app.Toasts().Warning("Estoque", product.Name+" PAUSADO 🔴")
	} else {
		s.app.Toasts().Success("Estoque", product.Name+" ATIVADO 🟢")
	}
	return nil
}

// DeleteProduct removes a catalog item. Placed orders keep their frozen
// line snapshots.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	start := time.Now()
	err := s.store.DeleteProduct(ctx, id)
	s.observeWrite(store.CollectionProducts, start)
	if err != nil {
		s.app.Toasts().Error("Erro", "Falha ao remover produto")
		return err
	}
	s.app.Toasts().Info("Cardápio", "Produto removido.")
	return nil
}

// CreateZone adds a delivery zone.
func (s *CatalogService) CreateZone(ctx context.Context, z *models.DeliveryZone) (string, error) {
	start := time.Now()
	id, err := s.store.CreateZone(ctx, z)
	s.observeWrite(store.CollectionZones, start)
	if err != nil {
		s.app.Toasts().Error("Erro", "Falha ao adicionar área de entrega")
		return "", err
	}
	s.app.Toasts().Success("Entrega", fmt.Sprintf("Área %q adicionada.", z.Name))
	return id, nil
}

// UpdateZone edits a delivery zone. Fee changes only affect future orders.
func (s *CatalogService) UpdateZone(ctx context.Context, id string, upd models.ZoneUpdate) error {
	start := time.Now()
	err := s.store.UpdateZone(ctx, id, upd)
	s.observeWrite(store.CollectionZones, start)
	if err != nil {
		s.app.Toasts().Error("Erro", "Falha ao atualizar área")
		return err
	}
	return nil
}

// DeleteZone removes a delivery zone.
func (s *CatalogService) DeleteZone(ctx context.Context, id string) error {
	start := time.Now()
	err := s.store.DeleteZone(ctx, id)
	s.observeWrite(store.CollectionZones, start)
	if err != nil {
		s.app.Toasts().Error("Erro", "Falha ao remover área")
		return err
	}
	s.app.Toasts().Info("Entrega", "Área removida.")
	return nil
}

// SaveSettings applies a partial settings change optimistically, then
// persists it. An open/close flip gets its own announcement.
func (s *CatalogService) SaveSettings(ctx context.Context, upd models.SettingsUpdate) error {
	s.app.ApplySettings(upd)

	start := time.Now()
	err := s.store.UpdateSettings(ctx, upd)
	s.observeWrite(store.CollectionSettings, start)
	if err != nil {
		s.logger.Error("settings write failed", zap.Error(err))
		s.app.Toasts().Error("Erro", "Falha ao salvar configurações")
		return err
	}

	if upd.IsOpen != nil {
		if *upd.IsOpen {
			s.app.Toasts().Success("Loja", "Loja ABERTA")
		} else {
			s.app.Toasts().Warning("Loja", "Loja FECHADA")
		}
	} else {
		s.app.Toasts().Success("Sucesso", "Configurações salvas.")
	}
	return nil
}
