package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
	"github.com/editaylors7/Dungeon-Gen-FHE/protocol"
)

// PostgresStore implements Store with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decryption_contexts (
		request_id VARCHAR(64) PRIMARY KEY,
		batch_id BIGINT NOT NULL,
		state_hash VARCHAR(64) NOT NULL,
		processed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS revealed_results (
		request_id VARCHAR(64) PRIMARY KEY REFERENCES decryption_contexts(request_id),
		batch_id BIGINT NOT NULL,
		strength BIGINT NOT NULL,
		agility BIGINT NOT NULL,
		intellect BIGINT NOT NULL,
		seed BIGINT NOT NULL,
		completed_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_contexts_batch ON decryption_contexts(batch_id);
	CREATE INDEX IF NOT EXISTS idx_results_batch ON revealed_results(batch_id);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveContext records a newly issued decryption context.
func (s *PostgresStore) SaveContext(ctx context.Context, id fhe.RequestID, dc protocol.DecryptionContext) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO decryption_contexts (request_id, batch_id, state_hash, processed)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (request_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, string(id), dc.BatchID, dc.StateHash.String(), dc.Processed)
	if err != nil {
		return fmt.Errorf("saving context: %w", err)
	}
	return nil
}

// SaveResult records a finalized decryption and marks its context processed.
func (s *PostgresStore) SaveResult(ctx context.Context, rec ResultRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	UPDATE decryption_contexts SET processed = TRUE WHERE request_id = $1
	`, string(rec.RequestID))
	if err != nil {
		return fmt.Errorf("marking context processed: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO revealed_results (request_id, batch_id, strength, agility, intellect, seed, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (request_id) DO NOTHING
	`, string(rec.RequestID), rec.BatchID,
		int64(rec.Values.Strength), int64(rec.Values.Agility),
		int64(rec.Values.Intellect), int64(rec.Values.Seed), rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("saving result: %w", err)
	}

	return tx.Commit()
}

// GetContext returns a stored context by request id.
func (s *PostgresStore) GetContext(ctx context.Context, id fhe.RequestID) (protocol.DecryptionContext, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		dc      protocol.DecryptionContext
		hashHex string
	)
	err := s.db.QueryRowContext(ctx, `
	SELECT batch_id, state_hash, processed FROM decryption_contexts WHERE request_id = $1
	`, string(id)).Scan(&dc.BatchID, &hashHex, &dc.Processed)
	if errors.Is(err, sql.ErrNoRows) {
		return protocol.DecryptionContext{}, fmt.Errorf("context %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return protocol.DecryptionContext{}, fmt.Errorf("querying context: %w", err)
	}

	hashBytes, err := hex.DecodeString(hashHex)
	if err != nil || len(hashBytes) != crypto.HashSize {
		return protocol.DecryptionContext{}, fmt.Errorf("corrupt state hash for %s", id)
	}
	copy(dc.StateHash[:], hashBytes)
	return dc, nil
}

// GetResult returns a finalized result by request id.
func (s *PostgresStore) GetResult(ctx context.Context, id fhe.RequestID) (ResultRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rec := ResultRecord{RequestID: id}
	var strength, agility, intellect, seed int64
	err := s.db.QueryRowContext(ctx, `
	SELECT batch_id, strength, agility, intellect, seed, completed_at
	FROM revealed_results WHERE request_id = $1
	`, string(id)).Scan(&rec.BatchID, &strength, &agility, &intellect, &seed, &rec.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ResultRecord{}, fmt.Errorf("result %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ResultRecord{}, fmt.Errorf("querying result: %w", err)
	}

	rec.Values = protocol.RevealedValues{
		Strength:  uint64(strength),
		Agility:   uint64(agility),
		Intellect: uint64(intellect),
		Seed:      uint64(seed),
	}
	return rec, nil
}

// ListResults returns all finalized results, oldest first.
func (s *PostgresStore) ListResults(ctx context.Context) ([]ResultRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
	SELECT request_id, batch_id, strength, agility, intellect, seed, completed_at
	FROM revealed_results ORDER BY completed_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []ResultRecord
	for rows.Next() {
		var (
			rec                               ResultRecord
			id                                string
			strength, agility, intellect, sd int64
		)
		if err := rows.Scan(&id, &rec.BatchID, &strength, &agility, &intellect, &sd, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		rec.RequestID = fhe.RequestID(id)
		rec.Values = protocol.RevealedValues{
			Strength:  uint64(strength),
			Agility:   uint64(agility),
			Intellect: uint64(intellect),
			Seed:      uint64(sd),
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
