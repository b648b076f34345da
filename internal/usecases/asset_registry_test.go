package usecases

import (
	"testing"

	"github.com/stretchr/testify/require"

	"paywatch.backend/internal/config"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
)

func testNetworks() map[entities.Network]config.NetworkConfig {
	return map[entities.Network]config.NetworkConfig{
		entities.NetworkTron: {
			NativeSymbol:   "TRX",
			NativeDecimals: 6,
			ReceiveAddress: "TTfNfANq9q68hm6xuAjSfafitBo9Did8SY",
			Tokens: map[string]config.TokenConfig{
				"USDT": {ContractAddress: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", Decimals: 6},
				"BAD":  {Decimals: 6},
			},
		},
		entities.NetworkBSC: {
			NativeSymbol:   "BNB",
			NativeDecimals: 18,
			Tokens:         map[string]config.TokenConfig{},
		},
	}
}

func TestAssetRegistry_LookupNative(t *testing.T) {
	registry := NewAssetRegistry(testNetworks())

	asset, err := registry.Lookup(entities.NetworkTron, "TRX")
	require.NoError(t, err)
	require.True(t, asset.IsNative)
	require.Empty(t, asset.ContractAddress)
	require.Equal(t, 6, asset.Decimals)
}

func TestAssetRegistry_LookupToken(t *testing.T) {
	registry := NewAssetRegistry(testNetworks())

	asset, err := registry.Lookup(entities.NetworkTron, "USDT")
	require.NoError(t, err)
	require.False(t, asset.IsNative)
	require.Equal(t, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", asset.ContractAddress)
	require.Equal(t, 6, asset.Decimals)
}

func TestAssetRegistry_UnknownIsConfigError(t *testing.T) {
	registry := NewAssetRegistry(testNetworks())

	_, err := registry.Lookup(entities.NetworkBSC, "DOGE")
	require.Error(t, err)
	require.True(t, domainerrors.IsAssetConfigError(err))

	_, err = registry.Lookup(entities.Network("Solana"), "SOL")
	require.True(t, domainerrors.IsAssetConfigError(err))

	// Registered but without a contract address is just as unusable.
	_, err = registry.Lookup(entities.NetworkTron, "BAD")
	require.True(t, domainerrors.IsAssetConfigError(err))
}

func TestAssetRegistry_ReceiveAddress(t *testing.T) {
	registry := NewAssetRegistry(testNetworks())

	addr, err := registry.ReceiveAddress(entities.NetworkTron)
	require.NoError(t, err)
	require.Equal(t, "TTfNfANq9q68hm6xuAjSfafitBo9Did8SY", addr)

	_, err = registry.ReceiveAddress(entities.NetworkBSC)
	require.True(t, domainerrors.IsAssetConfigError(err))
}
