package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.SignalRepository and ports.TradeRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

var (
	_ ports.SignalRepository = (*Repository)(nil)
	_ ports.TradeRepository  = (*Repository)(nil)
)

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/zone_signals.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %v", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %v", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// One writer; the scanner's workers serialize through the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Debug(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS signals (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		market TEXT NOT NULL,
		direction TEXT NOT NULL,
		strength REAL NOT NULL,
		entry REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		reason TEXT NOT NULL,
		zone_low REAL NOT NULL,
		zone_high REAL NOT NULL,
		price REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS replay_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		strength REAL NOT NULL,
		entry_index INTEGER NOT NULL,
		exit_index INTEGER NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NOT NULL,
		outcome TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol_timeframe_created ON signals (symbol, timeframe, created_at);
	CREATE INDEX IF NOT EXISTS idx_replay_trades_run ON replay_trades (run_id, entry_index);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w: %v", ports.ErrDBConnection, err)
	}
	return nil
}

// --- SignalRepository Implementation ---

// Save journals an emitted signal. The caller assigns the ID.
func (r *Repository) Save(ctx context.Context, sig *domain.JournaledSignal) error {
	if sig == nil || sig.ID == "" {
		return fmt.Errorf("signal with ID is required: %w", ports.ErrInvalidRequest)
	}
	const query = `
	INSERT INTO signals (id, run_id, symbol, timeframe, market, direction, strength, entry,
	                     stop_loss, take_profit, reason, zone_low, zone_high, price, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	s := sig.Signal
	_, err := r.db.ExecContext(ctx, query,
		sig.ID, sig.RunID, sig.Symbol, sig.Timeframe, string(sig.Market), string(s.Direction), s.Strength, s.Entry,
		s.StopLoss, s.TakeProfit, string(s.Reason), s.ZoneLow, s.ZoneHigh, sig.Price, sig.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert signal for %s %s: %w: %v", sig.Symbol, sig.Timeframe, ports.ErrQueryFailed, err)
	}
	r.logger.Debug(ctx, "Signal journaled", map[string]interface{}{
		"signalID": sig.ID, "symbol": sig.Symbol, "timeframe": sig.Timeframe, "direction": s.Direction,
	})
	return nil
}

const signalColumns = `id, run_id, symbol, timeframe, market, direction, strength, entry,
	       stop_loss, take_profit, reason, zone_low, zone_high, price, created_at`

// FindLatest retrieves the most recent signal for symbol/timeframe, if any.
func (r *Repository) FindLatest(ctx context.Context, symbol, timeframe string) (*domain.JournaledSignal, error) {
	query := `SELECT ` + signalColumns + `
	FROM signals
	WHERE symbol = ? AND timeframe = ?
	ORDER BY created_at DESC LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, symbol, timeframe)
	sig, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query latest signal for %s %s: %w: %v", symbol, timeframe, ports.ErrQueryFailed, err)
	}
	return sig, nil
}

// FindBySymbol retrieves the most recent signals for a symbol, up to a limit.
func (r *Repository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.JournaledSignal, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d: %w", limit, ports.ErrInvalidRequest)
	}
	query := `SELECT ` + signalColumns + `
	FROM signals
	WHERE symbol = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals for symbol %s: %w: %v", symbol, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	signals := make([]*domain.JournaledSignal, 0)
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal during FindBySymbol: %w", err)
		}
		signals = append(signals, sig)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal rows: %w", err)
	}
	return signals, nil
}

// CountSince counts signals journaled at or after since.
func (r *Repository) CountSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM signals WHERE created_at >= ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, since.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count signals since %s: %w: %v", since.Format(time.RFC3339), ports.ErrQueryFailed, err)
	}
	return count, nil
}

// --- TradeRepository Implementation ---

// SaveTrade stores a replayed trade under runID.
func (r *Repository) SaveTrade(ctx context.Context, runID string, trade *domain.Trade) error {
	const query = `
	INSERT INTO replay_trades (run_id, symbol, timeframe, direction, entry_price, exit_price,
	                           stop_loss, take_profit, strength, entry_index, exit_index,
	                           entry_time, exit_time, outcome)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		runID, trade.Symbol, trade.Timeframe, string(trade.Direction), trade.EntryPrice, trade.ExitPrice,
		trade.StopLoss, trade.TakeProfit, trade.Strength, trade.EntryIndex, trade.ExitIndex,
		trade.EntryTime.UTC(), trade.ExitTime.UTC(), string(trade.Outcome))
	if err != nil {
		return fmt.Errorf("failed to insert replay trade for %s: %w: %v", trade.Symbol, ports.ErrQueryFailed, err)
	}
	return nil
}

// FindTradesByRun retrieves the trades of one replay run ordered by entry index.
func (r *Repository) FindTradesByRun(ctx context.Context, runID string) ([]*domain.Trade, error) {
	const query = `
	SELECT symbol, timeframe, direction, entry_price, exit_price, stop_loss, take_profit,
	       strength, entry_index, exit_index, entry_time, exit_time, outcome
	FROM replay_trades
	WHERE run_id = ? ORDER BY entry_index ASC`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query replay trades for run %s: %w: %v", runID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan replay trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating replay trade rows: %w", err)
	}
	return trades, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSignal scans a row into a domain.JournaledSignal struct.
func scanSignal(s scanner) (*domain.JournaledSignal, error) {
	js := &domain.JournaledSignal{}
	var market, direction, reason string
	err := s.Scan(
		&js.ID, &js.RunID, &js.Symbol, &js.Timeframe, &market, &direction, &js.Signal.Strength, &js.Signal.Entry,
		&js.Signal.StopLoss, &js.Signal.TakeProfit, &reason, &js.Signal.ZoneLow, &js.Signal.ZoneHigh, &js.Price, &js.CreatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	js.Market = domain.MarketType(market)
	js.Signal.Direction = domain.Direction(direction)
	js.Signal.Reason = domain.SignalReason(reason)
	return js, nil
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var direction, outcome string
	err := s.Scan(
		&t.Symbol, &t.Timeframe, &direction, &t.EntryPrice, &t.ExitPrice, &t.StopLoss, &t.TakeProfit,
		&t.Strength, &t.EntryIndex, &t.ExitIndex, &t.EntryTime, &t.ExitTime, &outcome)
	if err != nil {
		return nil, err
	}
	t.Direction = domain.Direction(direction)
	t.Outcome = domain.TradeOutcome(outcome)
	return t, nil
}
