package domain

const (
	// ShippingFlat фиксированная стоимость доставки, 5.99
	ShippingFlat Money = 599
	// TaxPercent налог в процентах от суммы товаров
	TaxPercent = 10
)

// Quote расчёт итогов заказа. Считается только на сервере.
type Quote struct {
	ItemsPrice    Money `json:"itemsPrice"`
	TaxPrice      Money `json:"taxPrice"`
	ShippingPrice Money `json:"shippingPrice"`
	TotalPrice    Money `json:"totalPrice"`
}

// PriceQuote считает налог, доставку и итог для суммы товаров
func PriceQuote(subtotal Money) Quote {
	tax := subtotal.Percent(TaxPercent)
	return Quote{
		ItemsPrice:    subtotal,
		TaxPrice:      tax,
		ShippingPrice: ShippingFlat,
		TotalPrice:    subtotal + tax + ShippingFlat,
	}
}
