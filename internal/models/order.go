package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/folkops/opsboard/internal/grid"
)

// Order is one shipment ("vận đơn") row. The tracking sheet this data
// came from holds everything as text, including quantities and amounts;
// the columns stay strings and reporting parses what it needs.
type Order struct {
	OrderCode      string `gorm:"primaryKey;column:order_code" json:"order_code"`
	OrderDate      string `gorm:"column:order_date;index" json:"order_date"` // YYYY-MM-DD
	CustomerName   string `gorm:"column:customer_name" json:"customer_name"`
	Phone          string `gorm:"column:phone" json:"phone"`
	Address        string `gorm:"column:address" json:"address"`
	Product        string `gorm:"column:product;index" json:"product"`
	Quantity       string `gorm:"column:quantity" json:"quantity"`
	CODAmount      string `gorm:"column:cod_amount" json:"cod_amount"`
	Market         string `gorm:"column:market;index" json:"market"`
	DeliveryStatus string `gorm:"column:delivery_status;index" json:"delivery_status"`
	Carrier        string `gorm:"column:carrier" json:"carrier"`
	SalesStaff     string `gorm:"column:sales_staff;index" json:"sales_staff"`
	Team           string `gorm:"column:team;index" json:"team"`
	Note           string `gorm:"column:note" json:"note"`

	// UpdatedBy records the acting username of the last write.
	UpdatedBy string `gorm:"column:updated_by" json:"updated_by,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName pins the table name the legacy sync job also writes to.
func (Order) TableName() string { return "orders" }

// OrderFromRow builds an order from the grid's row shape. Unknown keys
// are ignored; missing keys come back as empty strings.
func OrderFromRow(row grid.Row) *Order {
	get := func(key string) string { return grid.CoerceString(row[key]) }
	return &Order{
		OrderCode:      get("order_code"),
		OrderDate:      get("order_date"),
		CustomerName:   get("customer_name"),
		Phone:          get("phone"),
		Address:        get("address"),
		Product:        get("product"),
		Quantity:       get("quantity"),
		CODAmount:      get("cod_amount"),
		Market:         get("market"),
		DeliveryStatus: get("delivery_status"),
		Carrier:        get("carrier"),
		SalesStaff:     get("sales_staff"),
		Team:           get("team"),
		Note:           get("note"),
	}
}

// ToRow flattens the order into the grid's row shape, keyed by the
// registry data keys.
func (o *Order) ToRow() grid.Row {
	return grid.Row{
		"order_code":      o.OrderCode,
		"order_date":      o.OrderDate,
		"customer_name":   o.CustomerName,
		"phone":           o.Phone,
		"address":         o.Address,
		"product":         o.Product,
		"quantity":        o.Quantity,
		"cod_amount":      o.CODAmount,
		"market":          o.Market,
		"delivery_status": o.DeliveryStatus,
		"carrier":         o.Carrier,
		"sales_staff":     o.SalesStaff,
		"team":            o.Team,
		"note":            o.Note,
	}
}
