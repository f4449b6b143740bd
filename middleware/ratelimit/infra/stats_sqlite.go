package infra

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ambilab-gateway/middleware/ratelimit/domain"
	"ambilab-gateway/migrations"

	_ "modernc.org/sqlite" // registra o driver "sqlite"
)

const (
	bucketTotal  = "total"
	bucketLayout = "200601021504"
)

// SQLiteStatsStore guarda contadores agregados num arquivo SQLite.
//
// Mesmo modelo do RedisStatsStore: total cumulativo + bucket por minuto,
// por rota, e (opcional) por chave. Outcome vira um campo "outcome:<code>".
type SQLiteStatsStore struct {
	db        *sql.DB
	bucket    string
	trackKeys bool
}

type SQLiteStatsOption func(*SQLiteStatsStore)

func WithSQLiteBucket(bucket string) SQLiteStatsOption {
	return func(s *SQLiteStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithSQLiteTrackKeys(track bool) SQLiteStatsOption {
	return func(s *SQLiteStatsStore) { s.trackKeys = track }
}

// NewSQLiteStatsStore abre (ou cria) o banco em dsn e aplica as migrations.
func NewSQLiteStatsStore(dsn string, opts ...SQLiteStatsOption) (*SQLiteStatsStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// :memory: é por conexão; uma conexão só mantém o mesmo banco
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLiteStatsStore{db: db, bucket: "minute"}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQLiteStatsStore) Close() error {
	return s.db.Close()
}

const upsertCounter = `INSERT INTO stats_counters (bucket, route, field, hits) VALUES (?, ?, ?, 1)
	ON CONFLICT (bucket, route, field) DO UPDATE SET hits = hits + 1`

func (s *SQLiteStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.db == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	fields := []string{ev.Field()}
	if ev.Outcome != "" {
		fields = append(fields, "outcome:"+ev.Outcome)
	}
	buckets := []string{bucketTotal}
	if s.bucket == "minute" {
		buckets = append(buckets, at.UTC().Format(bucketLayout))
	}
	route := strings.TrimSpace(ev.Route())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, b := range buckets {
		for _, f := range fields {
			if _, err := tx.ExecContext(ctx, upsertCounter, b, route, f); err != nil {
				return fmt.Errorf("upsert counter: %w", err)
			}
		}
	}

	if k := strings.TrimSpace(string(ev.Key)); s.trackKeys && k != "" {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO stats_keys (client_key, field, hits, last_seen) VALUES (?, ?, 1, ?)
			 ON CONFLICT (client_key, field) DO UPDATE SET hits = hits + 1, last_seen = excluded.last_seen`,
			k, ev.Field(), at.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("upsert key: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Total soma allowed/denied de todas as rotas.
func (s *SQLiteStatsStore) Total(ctx context.Context) (Counters, error) {
	var c Counters
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN field = 'allowed' THEN hits END), 0),
			COALESCE(SUM(CASE WHEN field = 'denied' THEN hits END), 0)
		 FROM stats_counters WHERE bucket = ?`, bucketTotal,
	).Scan(&c.Allowed, &c.Denied)
	if err != nil {
		return Counters{}, fmt.Errorf("query total: %w", err)
	}
	return c, nil
}

// Outcomes retorna os contadores cumulativos por código de resultado.
func (s *SQLiteStatsStore) Outcomes(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, SUM(hits) FROM stats_counters
		 WHERE bucket = ? AND field LIKE 'outcome:%'
		 GROUP BY field`, bucketTotal,
	)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			field string
			n     int64
		)
		if err := rows.Scan(&field, &n); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out[strings.TrimPrefix(field, "outcome:")] = n
	}
	return out, rows.Err()
}

// Prune apaga buckets por minuto anteriores a before (o total fica).
func (s *SQLiteStatsStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM stats_counters WHERE bucket <> ? AND bucket < ?`,
		bucketTotal, before.UTC().Format(bucketLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune counters: %w", err)
	}
	return res.RowsAffected()
}
