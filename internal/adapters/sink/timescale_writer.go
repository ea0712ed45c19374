package sink

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const insertRecordSQL = "INSERT INTO gas_data (ts_ns, ts, no2_gm, ethanol_gm, voc_gm, co_gm, co_mics, ethanol_mics, voc_mics, state, level) " +
	"VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) ON CONFLICT (ts_ns, ts) DO NOTHING"

// TimescaleConfig configures the SQL backend.
type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Migrate    bool   `yaml:"migrate"`
}

// TimescaleWriter inserts one row per record. A record re-sent by a sweep hits
// the ts_ns key and is skipped, the same way InfluxDB overwrites an identical
// point.
type TimescaleWriter struct {
	db *sql.DB
}

func NewTimescaleWriter(db *sql.DB) *TimescaleWriter {
	return &TimescaleWriter{db: db}
}

func (t *TimescaleWriter) Name() string { return "timescaledb" }

func (t *TimescaleWriter) WriteRecord(ctx context.Context, rec domain.SensorRecord) error {
	_, err := t.db.ExecContext(ctx, insertRecordSQL,
		rec.Timestamp,
		time.Unix(0, rec.Timestamp).UTC(),
		rec.NO2GM,
		rec.EthanolGM,
		rec.VOCGM,
		rec.COGM,
		rec.COMics,
		rec.EthanolMics,
		rec.VOCMics,
		rec.State,
		rec.Level,
	)
	if err != nil {
		return fmt.Errorf("timescale insert: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema migrations to the database behind dsn.
func Migrate(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

var _ ports.RecordWriter = (*TimescaleWriter)(nil)
