package models

import (
	"time"

	"gorm.io/gorm"
)

// Report is one team member's daily report entry: leads worked, orders
// closed, money spent and earned. Dashboard metrics (closing rate, cost
// percentage, KPI ratio) are derived from these rows at read time.
type Report struct {
	ID           uint64  `gorm:"type:bigint;primaryKey" json:"id"`
	ReportDate   string  `gorm:"column:report_date;index" json:"report_date"` // YYYY-MM-DD
	Team         string  `gorm:"index" json:"team"`
	Staff        string  `gorm:"index" json:"staff"`
	Leads        int     `json:"leads"`
	ClosedOrders int     `json:"closed_orders"`
	AdSpend      float64 `json:"ad_spend"`
	Revenue      float64 `json:"revenue"`
	KPITarget    float64 `json:"kpi_target"`
	Note         string  `json:"note"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
