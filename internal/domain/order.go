package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusAwaitingPay OrderStatus = "awaiting_payment"
	OrderStatusApproved    OrderStatus = "approved"
	OrderStatusPending     OrderStatus = "pending"
	OrderStatusRejected    OrderStatus = "rejected"
	OrderStatusShipped     OrderStatus = "shipped"
	OrderStatusCancelled   OrderStatus = "cancelled"
)

type Order struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Status         OrderStatus `gorm:"type:varchar(30);index"`
	Items          []OrderItem
	Email          string     `gorm:"size:140"`
	Name           string     `gorm:"size:140"`
	Phone          string     `gorm:"size:50"`
	DNI            string     `gorm:"size:30"`
	Address        string     `gorm:"size:255"`
	PostalCode     string     `gorm:"size:20"`
	Province       string     `gorm:"size:80"`
	DeliveryNotes  string     `gorm:"type:text"`
	MPPreferenceID string     `gorm:"size:140"`
	MPStatus       string     `gorm:"size:60"`
	CustomerID     *uuid.UUID `gorm:"type:uuid;index"`
	Subtotal       float64    `gorm:"type:decimal(12,2);default:0"`
	Total          float64    `gorm:"type:decimal(12,2)"`
	ShippingMethod string     `gorm:"size:30"`
	ShippingZone   string     `gorm:"size:60"`
	ShippingCost   float64    `gorm:"type:decimal(12,2)"`
	DiscountAmount float64    `gorm:"type:decimal(12,2)"`
	Notified       bool       `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"type:uuid;index"`
	ProductID int64     `gorm:"index"`
	Title     string    `gorm:"size:180"`
	// Variante elegida, sólo para mostrar en el detalle de la orden.
	ModelNumber string            `gorm:"size:60"`
	Size        string            `gorm:"size:60"`
	Color       string            `gorm:"size:60"`
	Tone        string            `gorm:"size:60"`
	Qty         int               `gorm:"not null"`
	UnitPrice   float64           `gorm:"type:decimal(12,2)"`
	KitContents []SelectedKitItem `gorm:"type:jsonb;serializer:json"`
}

type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"size:140;uniqueIndex"`
	Name      string    `gorm:"size:140"`
	Phone     string    `gorm:"size:60"`
	CreatedAt time.Time
}
