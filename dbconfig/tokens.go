package dbconfig

import (
	"context"

	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/dbconfig/models"
)

// GetTokensByChainID returns the extra registry tokens of a chain.
func (r *DBConfig) GetTokensByChainID(ctx context.Context, chainID uint64) ([]models.Token, error) {
	if chainID == 0 {
		return nil, dexerrors.ErrInvalidChainID
	}

	db, release, err := r.open()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, `
		SELECT chain_id, symbol, address, decimals
		FROM tokens
		WHERE chain_id = $1
		ORDER BY symbol ASC
	`, chainID)
	if err != nil {
		return nil, queryFailed("query tokens", err)
	}
	defer rows.Close()

	var tokens []models.Token
	for rows.Next() {
		var token models.Token
		var decimals int64
		if err := rows.Scan(&token.ChainID, &token.Symbol, &token.Address, &decimals); err != nil {
			return nil, queryFailed("scan token", err)
		}
		if decimals < 0 || decimals > 255 {
			return nil, dexerrors.Encoding("decimals", token.Symbol, "out of range")
		}
		token.Decimals = uint8(decimals)
		tokens = append(tokens, token)
	}

	if err = rows.Err(); err != nil {
		return nil, queryFailed("iterate tokens", err)
	}

	return tokens, nil
}
