package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/samdwyer/espritarena/internal/game"
	"github.com/samdwyer/espritarena/internal/ledger/migrations"
)

// Migrate applies the embedded goose migrations to dsn.
func Migrate(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// PostgresSink writes results to the battle_results and battle_stages tables.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to PostgreSQL.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Close closes the connection pool.
func (p *PostgresSink) Close() {
	p.pool.Close()
}

// Record implements Sink. The battle and its stages are written in one
// transaction.
func (p *PostgresSink) Record(ctx context.Context, r game.BattleResult) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO battle_results
		 (id, matchup, roster_a, roster_b, winner, reason, dealt_a, dealt_b, taken_a, taken_b)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.Matchup, r.A, r.B, r.Winner.String(), string(r.Reason),
		r.DamageDealt[game.SideA], r.DamageDealt[game.SideB],
		r.DamageTaken[game.SideA], r.DamageTaken[game.SideB],
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicateResult, r.ID)
		}
		return fmt.Errorf("save battle %s: %w", r.ID, err)
	}

	if len(r.Stages) > 0 {
		batch := &pgx.Batch{}
		for _, st := range r.Stages {
			detail, err := json.Marshal(st)
			if err != nil {
				return fmt.Errorf("encode stage %d: %w", st.Stage, err)
			}
			batch.Queue(
				`INSERT INTO battle_stages
				 (battle_id, stage, state, winner, turns, dealt_a, dealt_b, taken_a, taken_b, detail)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				r.ID, st.Stage, st.State.String(), st.Winner.String(), st.Turns,
				st.DamageDealt[game.SideA], st.DamageDealt[game.SideB],
				st.DamageTaken[game.SideA], st.DamageTaken[game.SideB],
				detail,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range r.Stages {
			if _, err := br.Exec(); err != nil {
				br.Close() //nolint:errcheck
				return fmt.Errorf("save stage batch: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close stage batch: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Standings counts wins per roster name across every stored battle.
func (p *PostgresSink) Standings(ctx context.Context) (map[string]int, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT CASE winner WHEN 'a' THEN roster_a ELSE roster_b END AS name, count(*)
		 FROM battle_results WHERE winner <> 'none' GROUP BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying standings: %w", err)
	}
	defer rows.Close()

	wins := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scanning standings: %w", err)
		}
		wins[name] = n
	}
	return wins, rows.Err()
}
