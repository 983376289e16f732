package models

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

type ProductType string

const (
	ProductPresale ProductType = "presale"
	ProductRegular ProductType = "regular"
)

type Product struct {
	Type        ProductType
	Name        string
	Description string
	Amount      decimal.Decimal
	Currency    string
}

// Prices are fixed server-side; checkout never reads an amount from the client.
var priceTable = map[ProductType]Product{
	ProductPresale: {
		Type:        ProductPresale,
		Name:        "BizPromptAI - 47 AI Business Prompts (Presale)",
		Description: "Limited time presale pricing - 47 ChatGPT prompts to save 12+ hours weekly",
		Amount:      decimal.RequireFromString("37.00"),
		Currency:    "usd",
	},
	ProductRegular: {
		Type:        ProductRegular,
		Name:        "BizPromptAI - 47 AI Business Prompts",
		Description: "47 ChatGPT prompts to automate your business and save 12+ hours weekly",
		Amount:      decimal.RequireFromString("47.00"),
		Currency:    "usd",
	},
}

func LookupProduct(t ProductType) (Product, error) {
	p, ok := priceTable[t]
	if !ok {
		return Product{}, pkgerrors.ErrInvalidProduct
	}
	return p, nil
}

// MinorUnits converts the price to cents for the payment provider.
func (p Product) MinorUnits() int64 {
	return p.Amount.Shift(2).IntPart()
}
