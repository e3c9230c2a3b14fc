package blockchain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// weiDecimals is the number of decimals of the native 0G token.
const weiDecimals = 18

// WeiToToken converts a wei amount to whole tokens.
func WeiToToken(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -weiDecimals)
}
