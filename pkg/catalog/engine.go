package catalog

import "fmt"

// Engine identifies a database engine dialect.
type Engine string

const (
	EngineClickHouse  Engine = "clickhouse"
	EngineDuckDB      Engine = "duckdb"
	EngineMonetDB     Engine = "monetdb"
	EnginePostgres    Engine = "postgres"
	EngineQuestDB     Engine = "questdb"
	EngineTimescaleDB Engine = "timescaledb"
)

// Engines returns all known engines in stable order.
func Engines() []Engine {
	return []Engine{
		EngineClickHouse,
		EngineDuckDB,
		EngineMonetDB,
		EnginePostgres,
		EngineQuestDB,
		EngineTimescaleDB,
	}
}

// ParseEngine validates and returns the engine for the given name.
func ParseEngine(name string) (Engine, error) {
	for _, e := range Engines() {
		if string(e) == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown engine %q", name)
}

func (e Engine) String() string {
	return string(e)
}
