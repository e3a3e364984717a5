package models

// Requests for market phase HTTP endpoints.

type MarketPhasesRequest struct {
	Fuel   string `query:"fuel" json:"fuel" validate:"required,oneof=e5 e10 diesel"`
	Region string `query:"region" json:"region" validate:"omitempty,numeric,len=3"`
	From   string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
}

type PrecomputeRequest struct {
	Fuels []string `json:"fuels" validate:"omitempty,dive,oneof=e5 e10 diesel"`
}
