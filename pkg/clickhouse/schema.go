package clickhouse

import "fmt"

// Schema returns the DDL for the observations table and the phase history table.
func Schema(database, observationsTable, phasesTable string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.%s (
            date            Date,
            fuel            LowCardinality(String),
            region_plz3     LowCardinality(String),
            price_mean      Float64,
            price_std       Nullable(Float64),
            benchmark_price Nullable(Float64)
        ) ENGINE = ReplacingMergeTree
        ORDER BY (fuel, region_plz3, date)`, database, observationsTable),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.%s (
            computed_at     DateTime64(3),
            fuel            LowCardinality(String),
            region_plz3     LowCardinality(String),
            phase           LowCardinality(String),
            start_date      Date,
            end_date        Date,
            duration_days   UInt32,
            avg_correlation Float64,
            avg_lag         Float64,
            avg_vol_ratio   Float64
        ) ENGINE = ReplacingMergeTree(computed_at)
        ORDER BY (fuel, region_plz3, computed_at, start_date)`, database, phasesTable),
	}
}
