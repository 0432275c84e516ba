package validation

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/settlegate/settlegate/internal/model"
)

func TestClassify(t *testing.T) {
	a := common.HexToAddress("0xAAAA000000000000000000000000000000000001")
	b := common.HexToAddress("0xBBBB000000000000000000000000000000000002")

	cases := []struct {
		name string
		path []common.Address
		want model.TradeType
	}{
		{"token to token", []common.Address{a, b}, model.TokenToToken},
		{"native in", []common.Address{model.NativeToken, b}, model.NativeInTokenOut},
		{"native out", []common.Address{a, model.NativeToken}, model.TokenInNativeOut},
		{"native mid-path is still token to token", []common.Address{a, model.NativeToken, b}, model.TokenToToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(&model.RouteData{Path: tc.path})
			assert.Equal(t, tc.want, got)
		})
	}
}
