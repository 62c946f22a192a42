package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ftahirops/colonysim/model"
)

// PG archives KPI samples into a Postgres table via a pooled connection,
// the observational sink named in SPEC_FULL.md's domain-stack section.
// It never participates in the kernel's own determinism — a dropped or
// slow insert here can never change simulated state, only the
// completeness of the outside record of it.
type PG struct {
	pool  *pgxpool.Pool
	table string
}

// OpenPG connects to dsn and prepares the archive table (kpi_samples by
// default) if it doesn't already exist.
func OpenPG(ctx context.Context, dsn, table string) (*PG, error) {
	if table == "" {
		table = "kpi_samples"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: connect: %w", err)
	}
	p := &PG{pool: pool, table: table}
	if err := p.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *PG) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		tick                 BIGINT PRIMARY KEY,
		uptime               DOUBLE PRECISION NOT NULL,
		deadline_hit_rate    DOUBLE PRECISION NOT NULL,
		corruption_field     DOUBLE PRECISION NOT NULL,
		sticky_workers       INTEGER NOT NULL,
		power_deficit_tick   BOOLEAN NOT NULL,
		black_swans_fired    INTEGER NOT NULL
	)`, p.table)
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("archive: ensure table %s: %w", p.table, err)
	}
	return nil
}

// Archive implements Sink, upserting sample by tick so a re-run of a
// resumed kernel (loaded from an earlier snapshot) overwrites rather than
// duplicates rows for ticks it replays.
func (p *PG) Archive(sample model.KPISample) error {
	q := fmt.Sprintf(`INSERT INTO %s
		(tick, uptime, deadline_hit_rate, corruption_field, sticky_workers, power_deficit_tick, black_swans_fired)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tick) DO UPDATE SET
			uptime = EXCLUDED.uptime,
			deadline_hit_rate = EXCLUDED.deadline_hit_rate,
			corruption_field = EXCLUDED.corruption_field,
			sticky_workers = EXCLUDED.sticky_workers,
			power_deficit_tick = EXCLUDED.power_deficit_tick,
			black_swans_fired = EXCLUDED.black_swans_fired`, p.table)

	_, err := p.pool.Exec(context.Background(), q,
		sample.Tick, sample.Uptime, sample.DeadlineHitRate, sample.CorruptionField,
		sample.StickyWorkers, sample.PowerDeficitTick, sample.BlackSwansFired)
	if err != nil {
		return fmt.Errorf("archive: insert tick %d: %w", sample.Tick, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (p *PG) Close() { p.pool.Close() }
