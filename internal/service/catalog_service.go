package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pen-inventory/internal/cache"
	"go-pen-inventory/internal/metrics"
	"go-pen-inventory/internal/model"
	"go-pen-inventory/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultSummaryPath groups the summary tree when no path is requested.
const DefaultSummaryPath = "category_name,brand_name,color"

type BrandRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
}

type CategoryRequest struct {
	Name            string   `json:"name" validate:"required,max=50"`
	Description     string   `json:"description" validate:"max=200"`
	AttributeSchema []string `json:"attribute_schema"`
}

type ItemRequest struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Description string     `json:"description"`
	BrandID     *uuid.UUID `json:"brand_id"`
	CategoryID  *uuid.UUID `json:"category_id"`
}

type VariantCreateRequest struct {
	ItemID         uuid.UUID        `json:"item" validate:"uuid_required"`
	Attributes     model.Attributes `json:"attributes"`
	Price          decimal.Decimal  `json:"price" validate:"gte=0"`
	Quantity       int              `json:"quantity" validate:"gte=0,max=2147483647"`
	TargetQuantity int              `json:"target_quantity" validate:"gte=0,max=2147483647"`
}

// VariantUpdateRequest is a partial update: nil fields are left untouched.
type VariantUpdateRequest struct {
	ItemID         *uuid.UUID        `json:"item"`
	Attributes     *model.Attributes `json:"attributes"`
	Price          *decimal.Decimal  `json:"price" validate:"omitempty,gte=0"`
	Quantity       *int              `json:"quantity"`
	TargetQuantity *int              `json:"target_quantity" validate:"omitempty,gte=0,max=2147483647"`
}

type CatalogService interface {
	ListBrands(ctx context.Context) ([]model.Brand, error)
	GetBrand(ctx context.Context, id uuid.UUID) (*model.Brand, error)
	CreateBrand(ctx context.Context, req *BrandRequest, userID string) (*model.Brand, error)
	UpdateBrand(ctx context.Context, id uuid.UUID, req *BrandRequest, userID string) (*model.Brand, error)
	DeleteBrand(ctx context.Context, id uuid.UUID) error

	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
	CreateCategory(ctx context.Context, req *CategoryRequest, userID string) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest, userID string) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListItems(ctx context.Context, name string, page repository.Pagination) (*repository.PageResult[model.Item], error)
	GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error)
	CreateItem(ctx context.Context, req *ItemRequest, userID string) (*model.Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, req *ItemRequest, userID string) (*model.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	ListVariants(ctx context.Context, filter repository.VariantFilter, page repository.Pagination) (*repository.PageResult[model.VariantResponse], error)
	GetVariant(ctx context.Context, id uuid.UUID) (*model.VariantResponse, error)
	CreateVariant(ctx context.Context, req *VariantCreateRequest, userID string) (*model.VariantResponse, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, req *VariantUpdateRequest, userID string) (*model.VariantResponse, error)
	DeleteVariant(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context, path string, filter repository.VariantFilter) (map[string]interface{}, error)
}

type catalogService struct {
	brands     repository.BrandRepository
	categories repository.CategoryRepository
	items      repository.ItemRepository
	variants   repository.VariantRepository
	cache      *cache.Cache
	log        *logrus.Logger
	paging     PageDefaults
}

func NewCatalogService(
	brands repository.BrandRepository,
	categories repository.CategoryRepository,
	items repository.ItemRepository,
	variants repository.VariantRepository,
	c *cache.Cache,
	log *logrus.Logger,
	paging PageDefaults,
) CatalogService {
	return &catalogService{
		brands:     brands,
		categories: categories,
		items:      items,
		variants:   variants,
		cache:      c,
		log:        log,
		paging:     paging,
	}
}

// ---- Brands ----

func (s *catalogService) ListBrands(ctx context.Context) ([]model.Brand, error) {
	return s.brands.FindAll(ctx)
}

func (s *catalogService) GetBrand(ctx context.Context, id uuid.UUID) (*model.Brand, error) {
	return s.brands.FindByID(ctx, id)
}

func (s *catalogService) CreateBrand(ctx context.Context, req *BrandRequest, userID string) (*model.Brand, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.uniqueBrandName(ctx, req.Name, uuid.Nil); err != nil {
		return nil, err
	}

	brand := &model.Brand{Name: req.Name, Description: req.Description}
	brand.CreatedBy = userID
	brand.UpdatedBy = userID
	if err := s.brands.Create(ctx, brand); err != nil {
		return nil, err
	}
	return brand, nil
}

func (s *catalogService) UpdateBrand(ctx context.Context, id uuid.UUID, req *BrandRequest, userID string) (*model.Brand, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	brand, err := s.brands.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.uniqueBrandName(ctx, req.Name, id); err != nil {
		return nil, err
	}

	brand.Name = req.Name
	brand.Description = req.Description
	brand.UpdatedBy = userID
	if err := s.brands.Update(ctx, brand); err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return brand, nil
}

func (s *catalogService) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	if err := s.brands.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *catalogService) uniqueBrandName(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.brands.FindByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		verr := model.NewValidationError()
		verr.Add("name", "brand with this name already exists.")
		return verr
	}
	return nil
}

// ---- Categories ----

func (s *catalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categories.FindAll(ctx)
}

func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	return s.categories.FindByID(ctx, id)
}

func (s *catalogService) CreateCategory(ctx context.Context, req *CategoryRequest, userID string) (*model.Category, error) {
	if err := s.validateCategory(ctx, req, uuid.Nil); err != nil {
		return nil, err
	}

	category := &model.Category{
		Name:            req.Name,
		Description:     req.Description,
		AttributeSchema: datatypes.JSONSlice[string](req.AttributeSchema),
	}
	category.CreatedBy = userID
	category.UpdatedBy = userID
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory replaces name, description and schema. A schema change is
// refused while any existing variant of the category would no longer match it.
func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest, userID string) (*model.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateCategory(ctx, req, id); err != nil {
		return nil, err
	}

	if !sameKeys(category.RequiredKeys(), req.AttributeSchema) {
		variants, err := s.variants.FindByCategory(ctx, id)
		if err != nil {
			return nil, err
		}
		if n := countMismatched(req.AttributeSchema, variants); n > 0 {
			verr := model.NewValidationError()
			verr.Add("attribute_schema", fmt.Sprintf("%d existing variant(s) do not match the new schema.", n))
			return nil, verr
		}
	}

	category.Name = req.Name
	category.Description = req.Description
	category.AttributeSchema = datatypes.JSONSlice[string](req.AttributeSchema)
	category.UpdatedBy = userID
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *catalogService) validateCategory(ctx context.Context, req *CategoryRequest, self uuid.UUID) error {
	if err := validate(req); err != nil {
		return err
	}
	if req.AttributeSchema == nil {
		req.AttributeSchema = []string{}
	}
	for i, key := range req.AttributeSchema {
		req.AttributeSchema[i] = strings.TrimSpace(key)
	}
	if err := model.ValidateSchema(req.AttributeSchema); err != nil {
		return err
	}

	existing, err := s.categories.FindByName(ctx, req.Name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		verr := model.NewValidationError()
		verr.Add("name", "category with this name already exists.")
		return verr
	}
	return nil
}

// ---- Items ----

func (s *catalogService) ListItems(ctx context.Context, name string, page repository.Pagination) (*repository.PageResult[model.Item], error) {
	return s.items.List(ctx, name, page.Normalize(s.paging.Default, s.paging.Max))
}

func (s *catalogService) GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	return s.items.FindByID(ctx, id)
}

func (s *catalogService) CreateItem(ctx context.Context, req *ItemRequest, userID string) (*model.Item, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.checkItemRefs(ctx, req); err != nil {
		return nil, err
	}

	item := &model.Item{
		Name:        req.Name,
		Description: req.Description,
		BrandID:     req.BrandID,
		CategoryID:  req.CategoryID,
	}
	item.CreatedBy = userID
	item.UpdatedBy = userID
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return s.items.FindByID(ctx, item.ID)
}

// UpdateItem rejects a category change that would leave existing variants
// violating the new category's schema.
func (s *catalogService) UpdateItem(ctx context.Context, id uuid.UUID, req *ItemRequest, userID string) (*model.Item, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkItemRefs(ctx, req); err != nil {
		return nil, err
	}

	if !sameID(item.CategoryID, req.CategoryID) {
		var schema []string
		if req.CategoryID != nil {
			category, err := s.categories.FindByID(ctx, *req.CategoryID)
			if err != nil {
				return nil, err
			}
			schema = category.RequiredKeys()
		}
		if n := countMismatched(schema, item.Variants); n > 0 {
			verr := model.NewValidationError()
			verr.Add("category_id", fmt.Sprintf("%d existing variant(s) do not match the new category's schema.", n))
			return nil, verr
		}
	}

	item.Name = req.Name
	item.Description = req.Description
	item.BrandID = req.BrandID
	item.CategoryID = req.CategoryID
	item.UpdatedBy = userID
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return s.items.FindByID(ctx, id)
}

func (s *catalogService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *catalogService) checkItemRefs(ctx context.Context, req *ItemRequest) error {
	verr := model.NewValidationError()
	if req.BrandID != nil {
		if _, err := s.brands.FindByID(ctx, *req.BrandID); err != nil {
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}
			verr.Add("brand_id", fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", req.BrandID))
		}
	}
	if req.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *req.CategoryID); err != nil {
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}
			verr.Add("category_id", fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", req.CategoryID))
		}
	}
	return verr.OrNil()
}

// ---- Variants ----

func (s *catalogService) ListVariants(ctx context.Context, filter repository.VariantFilter, page repository.Pagination) (*repository.PageResult[model.VariantResponse], error) {
	if err := validateStockStatus(filter.StockStatus); err != nil {
		return nil, err
	}
	result, err := s.variants.List(ctx, filter, page.Normalize(s.paging.Default, s.paging.Max))
	if err != nil {
		return nil, err
	}
	return repository.MapPage(result, (*model.ItemVariant).ToResponse), nil
}

// GetVariant is cache-aside: redis first, then the database.
func (s *catalogService) GetVariant(ctx context.Context, id uuid.UUID) (*model.VariantResponse, error) {
	key := cache.VariantKey(id)
	var cached model.VariantResponse
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		s.log.WithError(err).WithField("key", key).Warn("Cache read failed")
	case hit:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return &cached, nil
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	gen, genErr := s.cache.Generation(ctx)
	variant, err := s.variants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := variant.ToResponse()
	s.fillCache(ctx, key, gen, genErr, resp)
	return &resp, nil
}

// fillCache stores a freshly loaded value unless the cache was invalidated
// after gen was read.
func (s *catalogService) fillCache(ctx context.Context, key string, gen int64, genErr error, value interface{}) {
	if genErr != nil {
		s.log.WithError(genErr).WithField("key", key).Warn("Cache generation read failed")
		return
	}
	stored, err := s.cache.SetJSONIfGeneration(ctx, key, gen, value)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Cache write failed")
		return
	}
	if !stored {
		s.log.WithField("key", key).Debug("Cache fill skipped after concurrent invalidation")
	}
}

// CreateVariant validates attributes against the item's category, derives the
// SKU and stores the variant with its opening quantity.
func (s *catalogService) CreateVariant(ctx context.Context, req *VariantCreateRequest, userID string) (*model.VariantResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	item, err := s.items.FindByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			verr := model.NewValidationError()
			verr.Add("item", fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", req.ItemID))
			return nil, verr
		}
		return nil, err
	}

	variant := &model.ItemVariant{
		ItemID:         item.ID,
		Attributes:     req.Attributes.Normalized(),
		Price:          req.Price.Round(2),
		Quantity:       req.Quantity,
		TargetQuantity: req.TargetQuantity,
	}
	if err := model.ValidateAttributes(item.Category.RequiredKeys(), variant.Attributes); err != nil {
		return nil, err
	}
	variant.RefreshSKU()
	if err := s.uniqueSKU(ctx, variant.SKU, uuid.Nil); err != nil {
		return nil, err
	}

	variant.CreatedBy = userID
	variant.UpdatedBy = userID
	if err := s.variants.Create(ctx, variant); err != nil {
		return nil, err
	}
	s.invalidateSummaries(ctx)
	return s.loadVariant(ctx, variant.ID)
}

// UpdateVariant applies a partial update. Quantity is refused: only stock
// updates move it.
func (s *catalogService) UpdateVariant(ctx context.Context, id uuid.UUID, req *VariantUpdateRequest, userID string) (*model.VariantResponse, error) {
	if req.Quantity != nil {
		verr := model.NewValidationError()
		verr.Add("quantity", "Quantity cannot be updated directly. Use the bulk stock update endpoint.")
		return nil, verr
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	variant, err := s.variants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	item := variant.Item
	itemChanged := req.ItemID != nil && *req.ItemID != variant.ItemID
	if itemChanged {
		item, err = s.items.FindByID(ctx, *req.ItemID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				verr := model.NewValidationError()
				verr.Add("item", fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", req.ItemID))
				return nil, verr
			}
			return nil, err
		}
		variant.ItemID = item.ID
	}
	if req.Attributes != nil {
		variant.Attributes = req.Attributes.Normalized()
	}

	if req.Attributes != nil || itemChanged {
		var schema []string
		if item != nil {
			schema = item.Category.RequiredKeys()
		}
		if err := model.ValidateAttributes(schema, variant.Attributes); err != nil {
			return nil, err
		}
		variant.RefreshSKU()
		if err := s.uniqueSKU(ctx, variant.SKU, variant.ID); err != nil {
			return nil, err
		}
	}
	if req.Price != nil {
		variant.Price = req.Price.Round(2)
	}
	if req.TargetQuantity != nil {
		variant.TargetQuantity = *req.TargetQuantity
	}
	variant.UpdatedBy = userID

	if err := s.variants.Update(ctx, variant); err != nil {
		return nil, err
	}
	s.invalidateVariant(ctx, id)
	return s.loadVariant(ctx, id)
}

func (s *catalogService) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	if err := s.variants.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateVariant(ctx, id)
	return nil
}

// Summary nests the filtered variants by the comma-separated keys of path.
// Each key is an item detail (name, brand_name, category_name) or an attribute;
// the innermost level holds the variants themselves.
func (s *catalogService) Summary(ctx context.Context, path string, filter repository.VariantFilter) (map[string]interface{}, error) {
	if err := validateStockStatus(filter.StockStatus); err != nil {
		return nil, err
	}
	keys := splitPath(path)

	cacheable := filter == (repository.VariantFilter{})
	key := cache.SummaryKey(strings.Join(keys, ","))
	if cacheable {
		var cached map[string]interface{}
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	gen, genErr := s.cache.Generation(ctx)
	variants, err := s.variants.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	tree := make(map[string]interface{})
	for i := range variants {
		addToTree(tree, variants[i].ToResponse(), keys)
	}

	if cacheable {
		s.fillCache(ctx, key, gen, genErr, tree)
	}
	return tree, nil
}

func addToTree(tree map[string]interface{}, v model.VariantResponse, keys []string) {
	val := v.GroupValue(keys[0])
	if len(keys) == 1 {
		leaf, _ := tree[val].([]model.VariantResponse)
		tree[val] = append(leaf, v)
		return
	}
	child, ok := tree[val].(map[string]interface{})
	if !ok {
		child = make(map[string]interface{})
		tree[val] = child
	}
	addToTree(child, v, keys[1:])
}

func splitPath(path string) []string {
	if strings.TrimSpace(path) == "" {
		path = DefaultSummaryPath
	}
	keys := make([]string, 0, 3)
	for _, k := range strings.Split(path, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return strings.Split(DefaultSummaryPath, ",")
	}
	return keys
}

func (s *catalogService) loadVariant(ctx context.Context, id uuid.UUID) (*model.VariantResponse, error) {
	variant, err := s.variants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := variant.ToResponse()
	return &resp, nil
}

func (s *catalogService) uniqueSKU(ctx context.Context, sku string, self uuid.UUID) error {
	existing, err := s.variants.FindBySKU(ctx, sku)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		verr := model.NewValidationError()
		verr.Add("sku", fmt.Sprintf("A variant with SKU %s already exists.", sku))
		return verr
	}
	return nil
}

func (s *catalogService) invalidateVariant(ctx context.Context, id uuid.UUID) {
	if err := s.cache.InvalidateVariants(ctx, id); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate variant cache")
	}
}

func (s *catalogService) invalidateSummaries(ctx context.Context) {
	if err := s.cache.InvalidateVariants(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate summary cache")
	}
}

func (s *catalogService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate catalog cache")
	}
}

func validateStockStatus(status string) error {
	switch status {
	case "", model.StockInStock, model.StockOutOfStock, model.StockBelowTarget:
		return nil
	}
	verr := model.NewValidationError()
	verr.Add("stock_status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", status))
	return verr
}

// countMismatched reports how many variants fail the given schema.
func countMismatched(schema []string, variants []model.ItemVariant) int {
	n := 0
	for _, v := range variants {
		if model.ValidateAttributes(schema, v.Attributes) != nil {
			n++
		}
	}
	return n
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, k := range a {
		set[k] = struct{}{}
	}
	for _, k := range b {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return true
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
