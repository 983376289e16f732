package models

import "github.com/shopspring/decimal"

type Dashboard struct {
	Users   DashboardUsers   `json:"users"`
	Leads   DashboardLeads   `json:"leads"`
	Surveys DashboardSurveys `json:"surveys"`
	Revenue DashboardRevenue `json:"revenue"`
}

type DashboardUsers struct {
	Total          int64   `json:"total"`
	Paid           int64   `json:"paid"`
	RecentSignups  int64   `json:"recent_signups"`
	ConversionRate float64 `json:"conversion_rate"`
}

type DashboardLeads struct {
	Total  int64 `json:"total"`
	Recent int64 `json:"recent"`
}

type DashboardSurveys struct {
	TotalResponses int64 `json:"total_responses"`
}

type DashboardRevenue struct {
	Total         decimal.Decimal `json:"total"`
	MonthlyTarget decimal.Decimal `json:"monthly_target"`
}
