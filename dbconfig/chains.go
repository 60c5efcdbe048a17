package dbconfig

import (
	"context"
	"database/sql"

	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/dbconfig/models"
	"github.com/pkg/errors"
)

const chainColumns = `
          id,
          chain_id,
          name,
          explorer_url,
          native_symbol,
          quoter_v2,
          swap_router02,
          weth,
          default_fee_tier,
          log_chunk_size,
          safety_guard,
          active,
          created_at,
          updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChain(row rowScanner) (models.Chain, error) {
	var chain models.Chain
	var name, explorer, nativeSymbol, quoter, router, weth sql.NullString
	var feeTier, chunkSize sql.NullInt64

	err := row.Scan(
		&chain.ID,
		&chain.ChainID,
		&name,
		&explorer,
		&nativeSymbol,
		&quoter,
		&router,
		&weth,
		&feeTier,
		&chunkSize,
		&chain.SafetyGuard,
		&chain.Active,
		&chain.CreatedAt,
		&chain.UpdatedAt,
	)
	if err != nil {
		return chain, err
	}

	chain.Name = name.String
	chain.ExplorerURL = explorer.String
	chain.NativeSymbol = nativeSymbol.String
	chain.QuoterV2 = quoter.String
	chain.SwapRouter02 = router.String
	chain.WETH = weth.String
	if feeTier.Valid && feeTier.Int64 > 0 {
		chain.DefaultFeeTier = uint32(feeTier.Int64)
	}
	if chunkSize.Valid && chunkSize.Int64 > 0 {
		chain.LogChunkSize = uint64(chunkSize.Int64)
	}
	return chain, nil
}

// GetChains returns all chains from the database, optionally filtering by active status.
//
// Parameters:
// - ctx: the context for managing the request.
// - activeOnly: a boolean flag to filter only active chains.
//
// Returns:
// - []models.Chain: the chains ordered by chain id.
// - error: an error if the database operation fails.
func (r *DBConfig) GetChains(ctx context.Context, activeOnly bool) ([]models.Chain, error) {
	db, release, err := r.open()
	if err != nil {
		return nil, err
	}
	defer release()

	query := "SELECT" + chainColumns + "\n      FROM chains"

	var args []interface{}
	if activeOnly {
		query += " WHERE active = $1"
		args = append(args, true)
	}

	query += " ORDER BY chain_id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("query chains", err)
	}
	defer rows.Close()

	var chains []models.Chain
	for rows.Next() {
		chain, err := scanChain(rows)
		if err != nil {
			return nil, queryFailed("scan chain", err)
		}
		chains = append(chains, chain)
	}

	if err = rows.Err(); err != nil {
		return nil, queryFailed("iterate chains", err)
	}

	return chains, nil
}

// GetChainByID returns one chain row.
//
// Parameters:
// - ctx: the context for managing the request.
// - chainID: the EVM chain id.
//
// Returns:
// - *models.Chain: the chain.
// - error: ErrChainNotFound when there is no row, ErrInvalidChainID for zero.
func (r *DBConfig) GetChainByID(ctx context.Context, chainID uint64) (*models.Chain, error) {
	if chainID == 0 {
		return nil, dexerrors.ErrInvalidChainID
	}

	db, release, err := r.open()
	if err != nil {
		return nil, err
	}
	defer release()

	row := db.QueryRowContext(ctx, "SELECT"+chainColumns+"\n      FROM chains\n      WHERE chain_id = $1", chainID)
	chain, err := scanChain(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(dexerrors.ErrChainNotFound, "chain %d", chainID)
	}
	if err != nil {
		return nil, queryFailed("query chain", err)
	}

	return &chain, nil
}
