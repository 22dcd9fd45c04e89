package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/quayle/verdict/risk"
	"github.com/quayle/verdict/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createTradeTableSQL = "CREATE TABLE IF NOT EXISTS trade (id TEXT PRIMARY KEY, market TEXT, side TEXT, stake REAL, payout REAL, profit REAL, result TEXT, entryprice REAL, exitprice REAL, confidence REAL, mode TEXT, createdon INTEGER, settledon INTEGER)"
	createMetadataSQL   = "CREATE TABLE IF NOT EXISTS metadata (id TEXT PRIMARY KEY, total INTEGER, wins INTEGER, losses INTEGER, ties INTEGER, profit REAL, createdon INTEGER)"
	persistTradeSQL     = "INSERT INTO trade(id, market, side, stake, payout, profit, result, entryprice, exitprice, confidence, mode, createdon, settledon) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)"
	findMetadataSQL     = "SELECT * FROM metadata WHERE id = ?"
	updateMetadataSQL   = "UPDATE metadata SET total = total + 1, wins = wins + ?, losses = losses + ?, ties = ties + ?, profit = profit + ? WHERE id = ?"
	persistMetadataSQL  = "INSERT INTO metadata(id, total, wins, losses, ties, profit, createdon) VALUES(?,?,?,?,?,?,?)"
)

// TradeStorer defines the requirements for storing settled trades.
type TradeStorer interface {
	// PersistTrade stores the provided settled trade to the database.
	PersistTrade(ctx context.Context, record *risk.TradeRecord) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the TradeStorer interface.
var _ TradeStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createMetadataSQL},
		{SQL: createTradeTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// generateMetadataID generates deterministic ids for metadata using the
// month, week and market of the provided settlement time.
func generateMetadataID(settledOn time.Time, market string) string {
	month := settledOn.Month().String()
	week := settledOn.Day() / 7

	id := fmt.Sprintf("%s-Week-%d-%s", month, week, market)
	return id
}

// PersistTrade stores the provided settled trade to the database.
func (db *Database) PersistTrade(ctx context.Context, record *risk.TradeRecord) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistTradeSQL,
			PositionalParams: []any{record.ID, record.Market, record.Side.String(),
				record.Stake, record.Payout, record.Profit, record.Result.String(),
				record.EntryPrice, record.ExitPrice, record.Confidence,
				record.Mode.String(), record.CreatedOn.Unix(), record.SettledOn.Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	var win, loss, tie int
	switch record.Result {
	case shared.Win:
		win++
	case shared.Loss:
		loss++
	case shared.Tie:
		tie++
	default:
		db.cfg.Logger.Error().Msgf("unexpected trade result for metadata calculations: %s", spew.Sdump(record))
	}

	id := generateMetadataID(record.SettledOn, record.Market)
	resp, err := db.client.QuerySingle(ctx, findMetadataSQL, id)
	if err != nil {
		return err
	}

	exists := len(resp.GetQueryResultsAssoc()) > 0
	switch {
	case exists:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              updateMetadataSQL,
				PositionalParams: []any{win, loss, tie, record.Profit, id},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("updating metadata %s: %d -> %s", id, idx, errStr)
		}
	default:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              persistMetadataSQL,
				PositionalParams: []any{id, 1, win, loss, tie, record.Profit, record.SettledOn.Unix()},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("persisting metadata %s: %d -> %s", id, idx, errStr)
		}
	}

	return nil
}
