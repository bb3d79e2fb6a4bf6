package services

import (
	"context"
	"errors"
	"strings"

	"github.com/cafein/cafein-backend/models"
	"gorm.io/gorm"
)

type MenuInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Discount    int    `json:"discount"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	IsAvailable *bool  `json:"is_available"`
}

var menuCategories = map[string]bool{
	models.MenuCategoryBeverage: true,
	models.MenuCategoryMains:    true,
	models.MenuCategoryDessert:  true,
}

func (in MenuInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return validationError("name", "menu name is required")
	case in.Price <= 0:
		return validationError("price", "price must be greater than zero")
	case in.Discount < 0 || in.Discount > 100:
		return validationError("discount", "discount must be between 0 and 100")
	case !menuCategories[in.Category]:
		return validationError("category", "category must be beverage, mains or dessert")
	}
	return nil
}

type MenuService struct {
	db *gorm.DB
}

func NewMenuService(db *gorm.DB) *MenuService {
	return &MenuService{db: db}
}

// List returns menus, optionally narrowed to one category.
func (s *MenuService) List(ctx context.Context, category string, onlyAvailable bool) ([]models.Menu, error) {
	q := s.db.WithContext(ctx).Order("category ASC").Order("name ASC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if onlyAvailable {
		q = q.Where("is_available = ?", true)
	}
	var menus []models.Menu
	if err := q.Find(&menus).Error; err != nil {
		return nil, classifyDBError(err)
	}
	return menus, nil
}

func (s *MenuService) Create(ctx context.Context, in MenuInput) (*models.Menu, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	menu := models.Menu{IsAvailable: true}
	applyMenuInput(&menu, in)
	if err := s.db.WithContext(ctx).Create(&menu).Error; err != nil {
		return nil, classifyDBError(err)
	}
	return &menu, nil
}

func (s *MenuService) Update(ctx context.Context, id uint, in MenuInput) (*models.Menu, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var menu models.Menu
	if err := s.db.WithContext(ctx).First(&menu, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("menu", id)
		}
		return nil, classifyDBError(err)
	}
	applyMenuInput(&menu, in)
	if err := s.db.WithContext(ctx).Save(&menu).Error; err != nil {
		return nil, classifyDBError(err)
	}
	return &menu, nil
}

func (s *MenuService) Delete(ctx context.Context, id uint) error {
	var used int64
	if err := s.db.WithContext(ctx).Model(&models.OrderMenu{}).Where("menu_id = ?", id).Count(&used).Error; err != nil {
		return classifyDBError(err)
	}
	if used > 0 {
		return conflictError("menu is referenced by existing orders; mark it unavailable instead")
	}
	res := s.db.WithContext(ctx).Delete(&models.Menu{}, id)
	if res.Error != nil {
		return classifyDBError(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("menu", id)
	}
	return nil
}

func applyMenuInput(menu *models.Menu, in MenuInput) {
	menu.Name = strings.TrimSpace(in.Name)
	menu.Description = in.Description
	menu.Price = in.Price
	menu.Discount = in.Discount
	menu.Category = in.Category
	menu.ImageURL = in.ImageURL
	if in.IsAvailable != nil {
		menu.IsAvailable = *in.IsAvailable
	}
}
