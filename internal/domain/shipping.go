package domain

// ShippingZone es dato de referencia estático: códigos postales que
// comparten costo y demora. La tabla se evalúa en orden y gana el primer
// match, así que las zonas no deberían pisarse códigos entre sí.
type ShippingZone struct {
	Name        string
	PostalCodes []string
	Cost        float64
	ETA         string
	Description string
}

// ShippingOption es el resultado de resolver un código postal.
type ShippingOption struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Cost        float64 `json:"cost"`
	ETA         string  `json:"eta"`
	Description string  `json:"description"`
}

// PickupInfo describe el retiro gratis en el local. No depende del código
// postal.
type PickupInfo struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Cost     float64 `json:"cost"`
	Address  string  `json:"address"`
	Hours    string  `json:"hours"`
	PrepTime string  `json:"prep_time"`
}
