package usecases

import (
	"paywatch.backend/internal/config"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
)

// AssetRegistry resolves a network/symbol pair to its native-or-contract
// nature and decimal count. Built once from config; lookups never hit I/O.
type AssetRegistry struct {
	networks map[entities.Network]config.NetworkConfig
}

func NewAssetRegistry(networks map[entities.Network]config.NetworkConfig) *AssetRegistry {
	return &AssetRegistry{networks: networks}
}

// Lookup resolves an asset. An unregistered network or symbol yields an
// AssetConfigError, which the monitor treats as a permanent per-payment fault.
func (r *AssetRegistry) Lookup(network entities.Network, symbol string) (entities.Asset, error) {
	nc, ok := r.networks[network]
	if !ok {
		return entities.Asset{}, domainerrors.NewAssetConfigError(network, symbol, "network not registered")
	}

	if symbol == nc.NativeSymbol {
		return entities.Asset{
			Symbol:   symbol,
			IsNative: true,
			Decimals: nc.NativeDecimals,
		}, nil
	}

	token, ok := nc.Tokens[symbol]
	if !ok {
		return entities.Asset{}, domainerrors.NewAssetConfigError(network, symbol, "asset not registered")
	}
	if token.ContractAddress == "" {
		return entities.Asset{}, domainerrors.NewAssetConfigError(network, symbol, "token contract address not configured")
	}
	if token.Decimals < 0 {
		return entities.Asset{}, domainerrors.NewAssetConfigError(network, symbol, "invalid token decimals")
	}

	return entities.Asset{
		Symbol:          symbol,
		ContractAddress: token.ContractAddress,
		Decimals:        token.Decimals,
	}, nil
}

// ReceiveAddress returns the default custodial receiving address for a network.
func (r *AssetRegistry) ReceiveAddress(network entities.Network) (string, error) {
	nc, ok := r.networks[network]
	if !ok || nc.ReceiveAddress == "" {
		return "", domainerrors.NewAssetConfigError(network, "", "no receiving address configured")
	}
	return nc.ReceiveAddress, nil
}
