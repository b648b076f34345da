package entities

// Network identifies a supported blockchain
type Network string

const (
	NetworkTron Network = "Tron"
	NetworkBSC  Network = "BSC"
)

// Valid reports whether the network is one the gateway supports.
func (n Network) Valid() bool {
	return n == NetworkTron || n == NetworkBSC
}

// Asset describes a monitorable asset on a network, resolved through the
// asset registry. Native assets have no contract address.
type Asset struct {
	Symbol          string `json:"symbol"`
	IsNative        bool   `json:"isNative"`
	ContractAddress string `json:"contractAddress,omitempty"`
	Decimals        int    `json:"decimals"`
}
