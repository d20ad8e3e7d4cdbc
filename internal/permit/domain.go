package permit

import (
	solana "github.com/gagliardetto/solana-go"
)

// EnvelopeVersion is the only wire version this package speaks. The byte
// layout in codec.go is frozen per version; bumping it means a new codec.
const EnvelopeVersion uint8 = 1

// Cluster identifies the network a permit is bound to. A verifier on a
// different cluster must reject the envelope even if the signature checks.
type Cluster uint8

const (
	ClusterMainnet Cluster = iota
	ClusterTestnet
	ClusterDevnet
	ClusterLocalnet
)

func (c Cluster) String() string {
	switch c {
	case ClusterMainnet:
		return "mainnet"
	case ClusterTestnet:
		return "testnet"
	case ClusterDevnet:
		return "devnet"
	case ClusterLocalnet:
		return "localnet"
	default:
		return "unknown"
	}
}

// ClusterFromString maps a config name to its wire value. Unrecognized
// names resolve to localnet, never mainnet.
func ClusterFromString(s string) Cluster {
	switch s {
	case "mainnet":
		return ClusterMainnet
	case "testnet":
		return ClusterTestnet
	case "devnet":
		return ClusterDevnet
	default:
		return ClusterLocalnet
	}
}

// KeyType selects the signature scheme the verifier should expect.
type KeyType uint8

const (
	KeyEd25519 KeyType = iota
	KeySecp256k1
)

// PermitDomain binds an envelope to one program deployment on one network.
type PermitDomain struct {
	ProgramID solana.PublicKey
	Version   uint8
	Cluster   Cluster
}

// HealthMetric names the account-health figure a HealthFloor constrains.
type HealthMetric uint8

const (
	HealthInitial HealthMetric = iota
	HealthMaintenance
	HealthRatioBps
)

// HealthFloor is an optional post-action health constraint. Only risk
// affecting actions (Place, Modify, Withdraw, SetLeverage) may carry one.
type HealthFloor struct {
	Metric HealthMetric
	Min    int64
}

// Side of an order: 0 = bid, 1 = ask.
type Side uint8

const (
	SideBid Side = 0
	SideAsk Side = 1
)
