// Package svm constructs and tracks the Solana token-transfer transactions
// that satisfy a payment requirement. Construction is pluggable: a local
// Builder compiles transactions against the ledger, a FacilitatorSource
// delegates compilation to a remote facilitator.
package svm

import (
	pollgate "github.com/pollgate/pollgate-go"
)

// NetworkConfig holds per-deployment defaults.
type NetworkConfig struct {
	Name   string
	CAIP2  string
	RPCURL string
}

var networkConfigs = map[string]NetworkConfig{
	"solana": {
		Name:   "solana",
		CAIP2:  "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp",
		RPCURL: "https://api.mainnet-beta.solana.com",
	},
	"solana-devnet": {
		Name:   "solana-devnet",
		CAIP2:  "solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1",
		RPCURL: "https://api.devnet.solana.com",
	},
}

// GetNetworkConfig resolves a network identifier (short name or CAIP-2) to
// its configuration.
func GetNetworkConfig(network pollgate.Network) (NetworkConfig, bool) {
	if !network.IsSolana() {
		return NetworkConfig{}, false
	}
	if cfg, ok := networkConfigs[string(network)]; ok {
		return cfg, true
	}
	for _, cfg := range networkConfigs {
		if cfg.CAIP2 == string(network) {
			return cfg, true
		}
	}
	return NetworkConfig{}, false
}

// IsSupportedNetwork reports whether this client can pay on the network.
func IsSupportedNetwork(network pollgate.Network) bool {
	_, ok := GetNetworkConfig(network)
	return ok
}
