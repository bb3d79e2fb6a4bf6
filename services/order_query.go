package services

import (
	"context"
	"strings"

	"github.com/cafein/cafein-backend/models"
	"gorm.io/gorm"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type OrderQuery struct {
	Page   int    `json:"page" form:"page"`
	Limit  int    `json:"limit" form:"limit"`
	Search string `json:"search" form:"search"`
	// Role decides which row actions are offered. It is not an access check.
	Role string `json:"-" form:"-"`
}

// Normalize clamps paging values into range.
func (q OrderQuery) Normalize() OrderQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

type OrderView struct {
	models.Order
	Actions []string `json:"actions"`
}

type OrderPage struct {
	Data       []OrderView `json:"data"`
	Count      int64       `json:"count"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

type OrderQueryService struct {
	db *gorm.DB
}

func NewOrderQueryService(db *gorm.DB) *OrderQueryService {
	return &OrderQueryService{db: db}
}

// ListOrders returns one page of orders in creation order. Search matches the
// order code or the customer name, case-insensitively.
func (s *OrderQueryService) ListOrders(ctx context.Context, q OrderQuery) (OrderPage, error) {
	q = q.Normalize()
	page := OrderPage{Data: []OrderView{}, Page: q.Page, Limit: q.Limit}

	base := s.db.WithContext(ctx).Model(&models.Order{})
	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		base = base.Where("LOWER(order_id) LIKE ? OR LOWER(customer_name) LIKE ?", like, like)
	}

	if err := base.Session(&gorm.Session{}).Count(&page.Count).Error; err != nil {
		return page, classifyDBError(err)
	}
	page.TotalPages = int((page.Count + int64(q.Limit) - 1) / int64(q.Limit))

	var orders []models.Order
	err := base.Session(&gorm.Session{}).
		Preload("Table", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "status")
		}).
		Order("created_at ASC").
		Order("id ASC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&orders).Error
	if err != nil {
		return page, classifyDBError(err)
	}

	for _, o := range orders {
		page.Data = append(page.Data, OrderView{Order: o, Actions: ActionsFor(q.Role, o.Status)})
	}
	return page, nil
}

// FindByCode loads an order with its table and line items.
func (s *OrderQueryService) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Table").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Menu").
		Where("order_id = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, notFoundError("order", code)
		}
		return nil, classifyDBError(err)
	}
	return &order, nil
}

// ActiveOrders returns the newest orders in the given status.
func (s *OrderQueryService) ActiveOrders(ctx context.Context, status string, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Table").
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, classifyDBError(err)
	}
	return orders, nil
}
