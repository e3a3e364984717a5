package service

import "FuelPhases/internal/domain/models"

// PhaseEngine turns an observation table into market phases for one fuel
// and, optionally, one region.
type PhaseEngine interface {
	Calculate(table *models.Table, fuel, region string) (*models.MarketPhases, error)
}
