package validation

import (
	"github.com/settlegate/settlegate/internal/model"
	"github.com/settlegate/settlegate/internal/pkg/apperrors"
)

// V3FeeTiers are the pool fee tiers the V3 family deploys, in hundredths of a bip.
var V3FeeTiers = map[uint32]struct{}{
	100:   {},
	500:   {},
	3000:  {},
	10000: {},
}

// ValidateProtocolShape applies each venue family's fee-tier cardinality rule.
// The V2 family has no per-pool fee concept; the V3 family needs one tier per
// hop, drawn from the fixed set. Unknown protocols are rejected outright.
func ValidateProtocolShape(route *model.RouteData) error {
	switch route.Protocol {
	case model.ProtocolUniswapV2:
		if len(route.FeeTiers) != 0 {
			return apperrors.Newf(apperrors.ErrRoute, "fee_tier_count",
				"protocol %s takes no fee tiers, got %d", route.Protocol, len(route.FeeTiers))
		}
	case model.ProtocolUniswapV3:
		if len(route.FeeTiers) != route.Hops() {
			return apperrors.Newf(apperrors.ErrRoute, "fee_tier_count",
				"protocol %s needs %d fee tiers for a %d-token path, got %d",
				route.Protocol, route.Hops(), len(route.Path), len(route.FeeTiers))
		}
		for _, tier := range route.FeeTiers {
			if _, ok := V3FeeTiers[tier]; !ok {
				return apperrors.Newf(apperrors.ErrRoute, "fee_tier_value",
					"fee tier %d is not a valid %s tier", tier, route.Protocol)
			}
		}
	default:
		return apperrors.Newf(apperrors.ErrRoute, "unknown_protocol",
			"unsupported protocol %q", route.Protocol)
	}
	return nil
}
