package dbconfig

import (
	"context"
	"database/sql"

	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/dbconfig/models"
)

// GetRPCsByChainID returns all RPCs for a given chain ID from the database, optionally filtering by active status.
// Endpoints are ordered by priority, then newest first.
//
// Parameters:
// - ctx: the context for managing the request.
// - chainID: the unique identifier for the chain.
// - activeOnly: a boolean flag to filter only active RPCs.
//
// Returns:
// - []models.RPC: a slice of RPC models.
// - error: an error if the database operation fails.
func (r *DBConfig) GetRPCsByChainID(ctx context.Context, chainID uint64, activeOnly bool) ([]models.RPC, error) {
	if chainID == 0 {
		return nil, dexerrors.ErrInvalidChainID
	}

	db, release, err := r.open()
	if err != nil {
		return nil, err
	}
	defer release()

	query := `
  		SELECT
  			id,
			chain_id,
			url,
			provider,
			priority,
			active,
			created_at,
			updated_at
		FROM rpcs
		WHERE chain_id = $1
   `

	args := []interface{}{chainID}
	if activeOnly {
		query += " AND active = $2"
		args = append(args, true)
	}

	query += " ORDER BY priority ASC, created_at DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("query rpcs", err)
	}
	defer rows.Close()

	var rpcs []models.RPC
	for rows.Next() {
		var rpc models.RPC
		var provider sql.NullString
		var priority sql.NullInt64

		err := rows.Scan(
			&rpc.ID,
			&rpc.ChainID,
			&rpc.URL,
			&provider,
			&priority,
			&rpc.Active,
			&rpc.CreatedAt,
			&rpc.UpdatedAt,
		)
		if err != nil {
			return nil, queryFailed("scan rpc", err)
		}

		rpc.Provider = provider.String
		rpc.Priority = int(priority.Int64)

		rpcs = append(rpcs, rpc)
	}

	if err = rows.Err(); err != nil {
		return nil, queryFailed("iterate rpcs", err)
	}

	return rpcs, nil
}
