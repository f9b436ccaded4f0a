package clickhouse

import "fmt"

// CandlesTable is the unqualified name of the OHLCV table.
const CandlesTable = "candles"

// CandleSchema returns the DDL for the candle store in database db.
// Rows are deduplicated per (market, symbol, interval, ts) on merge.
func CandleSchema(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    market   LowCardinality(String),
    symbol   LowCardinality(String),
    interval LowCardinality(String),
    ts       DateTime64(3, 'UTC'),
    open     Float64,
    high     Float64,
    low      Float64,
    close    Float64,
    volume   Float64
) ENGINE = ReplacingMergeTree
ORDER BY (market, symbol, interval, ts)`, db, CandlesTable),
	}
}
