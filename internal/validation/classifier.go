package validation

import (
	"github.com/settlegate/settlegate/internal/model"
)

// Classify tags a route by its endpoints. Token-to-token is the dominant
// path; the native variants exist so payout logic can pick the right asset
// once native legs are re-enabled, but route validation currently rejects
// them before a settlement ever reaches classification.
func Classify(route *model.RouteData) model.TradeType {
	if len(route.Path) < 2 {
		return model.TokenToToken
	}
	switch {
	case route.Path[0] == model.NativeToken:
		return model.NativeInTokenOut
	case route.Path[len(route.Path)-1] == model.NativeToken:
		return model.TokenInNativeOut
	default:
		return model.TokenToToken
	}
}
