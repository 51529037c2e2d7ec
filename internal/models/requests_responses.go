package models

import "github.com/folkops/opsboard/internal/grid"

// UserInfo represents public user information.
type UserInfo struct {
	ID           uint64   `json:"id"`
	Username     string   `json:"username"`
	DisplayName  string   `json:"display_name"`
	Role         Role     `json:"role"`
	Team         string   `json:"team"`
	AllowedStaff []string `json:"allowed_staff,omitempty"`
}

// LoginRequest represents login credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the response after successful login.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in"`
	TokenType   string    `json:"token_type"`
	User        *UserInfo `json:"user"`
}

// CellUpdateRequest updates one cell of one order row.
type CellUpdateRequest struct {
	Column string `json:"column"` // data key or UI label
	Value  string `json:"value"`
}

// BatchUpdateRequest updates several rows in one call.
type BatchUpdateRequest struct {
	Rows []grid.RowPatch `json:"rows"`
}

// BatchUpdateResponse mirrors the legacy batch-write envelope.
type BatchUpdateResponse struct {
	Success bool `json:"success"`
	Summary struct {
		Updated int `json:"updated"`
	} `json:"summary"`
}

// ReportSummary is the aggregated view over report rows: the derived
// metrics the dashboard shows per team/staff grouping.
type ReportSummary struct {
	Group        string  `json:"group"`
	Leads        int     `json:"leads"`
	ClosedOrders int     `json:"closed_orders"`
	AdSpend      float64 `json:"ad_spend"`
	Revenue      float64 `json:"revenue"`
	ClosingRate  float64 `json:"closing_rate"` // closed / leads
	CostPercent  float64 `json:"cost_percent"` // ad spend / revenue
	KPIRatio     float64 `json:"kpi_ratio"`    // revenue / target
}
