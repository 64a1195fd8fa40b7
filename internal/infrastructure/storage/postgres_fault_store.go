package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// PostgresFaultStore долговечный журнал брака в Postgres
type PostgresFaultStore struct {
	conn *pgx.Conn
}

// NewPostgresFaultStore подключается к базе и создаёт таблицу журнала
func NewPostgresFaultStore(ctx context.Context, dsn string) (*PostgresFaultStore, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to fault database: %w", err)
	}

	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS faults (
			id BIGINT PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			task TEXT NOT NULL,
			source_id TEXT NOT NULL,
			frame_seq BIGINT NOT NULL,
			details TEXT NOT NULL,
			measurement DOUBLE PRECISION,
			relay_triggered BOOLEAN NOT NULL,
			relay_latency_ms BIGINT NOT NULL
		)
	`)
	if err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("init faults table: %w", err)
	}

	return &PostgresFaultStore{conn: conn}, nil
}

// Close закрывает соединение с базой
func (s *PostgresFaultStore) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// Append дописывает запись о браке. Ошибка возвращается как есть:
// решать, что с ней делать, обязан оркестратор, а не хранилище.
func (s *PostgresFaultStore) Append(ctx context.Context, record *entity.FaultRecord) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO faults (id, ts, task, source_id, frame_seq, details, measurement, relay_triggered, relay_latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		record.ID,
		record.Timestamp,
		string(record.Task),
		record.SourceID,
		record.FrameSeq,
		record.Details,
		record.Measurement,
		record.RelayTriggered,
		record.RelayLatency.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("append fault record %d: %w", record.ID, err)
	}
	return nil
}

// Query возвращает записи по фильтру, новые первыми
func (s *PostgresFaultStore) Query(ctx context.Context, filter entity.FaultFilter) ([]entity.FaultRecord, error) {
	query, args := buildQuery(filter)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query faults: %w", err)
	}
	defer rows.Close()

	var records []entity.FaultRecord
	for rows.Next() {
		var r entity.FaultRecord
		var latencyMS int64
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Task, &r.SourceID, &r.FrameSeq, &r.Details, &r.Measurement, &r.RelayTriggered, &latencyMS); err != nil {
			return nil, fmt.Errorf("scan fault record: %w", err)
		}
		r.RelayLatency = time.Duration(latencyMS) * time.Millisecond
		records = append(records, r)
	}
	return records, rows.Err()
}

// Stats возвращает сводку по записям, попавшим под фильтр
func (s *PostgresFaultStore) Stats(ctx context.Context, filter entity.FaultFilter) (entity.FaultStats, error) {
	records, err := s.Query(ctx, filter)
	if err != nil {
		return entity.FaultStats{}, err
	}

	stats := entity.FaultStats{
		Total:  len(records),
		ByTask: make(map[entity.TaskKind]int),
	}
	for _, r := range records {
		stats.ByTask[r.Task]++
	}
	return stats, nil
}

// LastID возвращает наибольший номер записи в журнале
func (s *PostgresFaultStore) LastID(ctx context.Context) (uint64, error) {
	var last uint64
	err := s.conn.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM faults`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("read last fault id: %w", err)
	}
	return last, nil
}

// buildQuery собирает SELECT с условиями из фильтра
func buildQuery(filter entity.FaultFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, ts, task, source_id, frame_seq, details, measurement, relay_triggered, relay_latency_ms FROM faults WHERE 1=1`)

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.From != nil {
		b.WriteString(" AND ts >= " + arg(*filter.From))
	}
	if filter.To != nil {
		b.WriteString(" AND ts <= " + arg(*filter.To))
	}
	if filter.Task != "" {
		b.WriteString(" AND task = " + arg(string(filter.Task)))
	}
	if filter.SourceID != "" {
		b.WriteString(" AND source_id = " + arg(filter.SourceID))
	}

	b.WriteString(" ORDER BY ts DESC")
	return b.String(), args
}

// Проверка реализации интерфейса
var _ port.FaultStore = (*PostgresFaultStore)(nil)
