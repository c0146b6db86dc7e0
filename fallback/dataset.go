// Package fallback serves the catalog snapshot bundled into the binary.
// It is only read when the primary store cannot answer.
package fallback

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"storefront/models"
)

//go:embed catalog.json
var bundled []byte

var ErrInvalidDataset = errors.New("invalid fallback dataset")

// snapshot uses the field names of the exported spreadsheet the bundle was
// built from; they are translated to models here and nowhere else.
type snapshot struct {
	Categories []struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		NameAr string `json:"name_ar"`
		Icon   string `json:"icon"`
		Desc   string `json:"desc"`
	} `json:"categories"`
	Products []struct {
		ID         int64           `json:"id"`
		Code       string          `json:"code"`
		Name       string          `json:"name"`
		NameAr     string          `json:"name_ar"`
		Price      int64           `json:"price"`
		Rating     decimal.Decimal `json:"rating"`
		Reviews    int             `json:"reviews"`
		CategoryID int64           `json:"category_id"`
		IsFeatured bool            `json:"is_featured"`
		InStock    bool            `json:"in_stock"`
	} `json:"products"`
}

// Dataset parses its source once, on first use, and hands out copies.
type Dataset struct {
	raw        []byte
	once       sync.Once
	categories []models.Category
	products   []models.Product
	err        error
}

// New returns the dataset compiled into the binary.
func New() *Dataset {
	return FromJSON(bundled)
}

func FromJSON(raw []byte) *Dataset {
	return &Dataset{raw: raw}
}

func (d *Dataset) Categories() ([]models.Category, error) {
	d.once.Do(d.load)
	if d.err != nil {
		return nil, d.err
	}
	return slices.Clone(d.categories), nil
}

func (d *Dataset) Products() ([]models.Product, error) {
	d.once.Do(d.load)
	if d.err != nil {
		return nil, d.err
	}
	return slices.Clone(d.products), nil
}

func (d *Dataset) load() {
	var snap snapshot
	if err := json.Unmarshal(d.raw, &snap); err != nil {
		d.err = fmt.Errorf("%w: %v", ErrInvalidDataset, err)
		return
	}

	categories := make([]models.Category, 0, len(snap.Categories))
	known := make(map[int64]bool, len(snap.Categories))
	for _, c := range snap.Categories {
		if c.ID <= 0 || known[c.ID] {
			d.err = fmt.Errorf("%w: bad or duplicate category id %d", ErrInvalidDataset, c.ID)
			return
		}
		known[c.ID] = true
		categories = append(categories, models.Category{
			ID:            c.ID,
			Name:          c.Name,
			LocalizedName: c.NameAr,
			Icon:          c.Icon,
			Description:   c.Desc,
		})
	}

	five := decimal.NewFromInt(5)
	products := make([]models.Product, 0, len(snap.Products))
	seen := make(map[int64]bool, len(snap.Products))
	codes := make(map[string]bool, len(snap.Products))
	for _, p := range snap.Products {
		switch {
		case p.ID <= 0 || seen[p.ID]:
			d.err = fmt.Errorf("%w: bad or duplicate product id %d", ErrInvalidDataset, p.ID)
		case p.Code == "" || codes[p.Code]:
			d.err = fmt.Errorf("%w: product %d has empty or duplicate code %q", ErrInvalidDataset, p.ID, p.Code)
		case p.Price < 0 || p.Reviews < 0:
			d.err = fmt.Errorf("%w: product %d has negative price or review count", ErrInvalidDataset, p.ID)
		case p.Rating.IsNegative() || p.Rating.GreaterThan(five):
			d.err = fmt.Errorf("%w: product %d rating %s out of range", ErrInvalidDataset, p.ID, p.Rating)
		case !known[p.CategoryID]:
			d.err = fmt.Errorf("%w: product %d references unknown category %d", ErrInvalidDataset, p.ID, p.CategoryID)
		}
		if d.err != nil {
			return
		}
		seen[p.ID] = true
		codes[p.Code] = true
		products = append(products, models.Product{
			ID:            p.ID,
			Code:          p.Code,
			Name:          p.Name,
			LocalizedName: p.NameAr,
			Price:         p.Price,
			Rating:        p.Rating,
			ReviewCount:   p.Reviews,
			CategoryID:    p.CategoryID,
			Featured:      p.IsFeatured,
			InStock:       p.InStock,
		})
	}

	d.categories = categories
	d.products = products
}
