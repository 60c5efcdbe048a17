package tools

import (
	"math/big"

	"github.com/ClipFinance/dex-engine/common/codec"
	"github.com/shopspring/decimal"
)

// rateDecimals is the precision of exchange rates in reports.
const rateDecimals = 6

// feePercent renders a Uniswap fee tier, 3000 -> "0.3".
func feePercent(fee uint32) string {
	return decimal.New(int64(fee), -4).String()
}

// bpsPercent renders basis points as a percentage, 50 -> "0.5".
func bpsPercent(bps uint32) string {
	return decimal.New(int64(bps), -2).String()
}

// rate returns how many output units one input unit buys.
func rate(amountIn *big.Int, decimalsIn uint8, amountOut *big.Int, decimalsOut uint8) string {
	if amountIn == nil || amountIn.Sign() == 0 || amountOut == nil {
		return "0"
	}
	in := decimal.NewFromBigInt(amountIn, -int32(decimalsIn))
	out := decimal.NewFromBigInt(amountOut, -int32(decimalsOut))
	return out.DivRound(in, rateDecimals).String()
}

func units(raw *big.Int, decimals uint8) string {
	return codec.FormatUnits(raw, decimals)
}
