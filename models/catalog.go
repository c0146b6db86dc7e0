package models

import "github.com/shopspring/decimal"

func init() {
	// ratings go out as JSON numbers (4.5), not strings
	decimal.MarshalJSONWithoutQuotes = true
}

type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	LocalizedName string `json:"localizedName"`
	Icon          string `json:"icon"`
	Description   string `json:"description"`
}

// Product prices are whole dinars.
type Product struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	LocalizedName string          `json:"localizedName"`
	Price         int64           `json:"price"`
	Rating        decimal.Decimal `json:"rating"`
	ReviewCount   int             `json:"reviewCount"`
	CategoryID    int64           `json:"categoryId"`
	Featured      bool            `json:"featured"`
	InStock       bool            `json:"inStock"`
}

// Provenance names the tier that answered a catalog read.
type Provenance string

const (
	SourceCache    Provenance = "CACHE"
	SourcePrimary  Provenance = "PRIMARY"
	SourceFallback Provenance = "FALLBACK"
)
