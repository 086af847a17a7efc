package catalog

import "github.com/layer-3/questor/core"

// Default returns the catalog shipped with the service
func Default() *Catalog {
	return New(defaultQuests)
}

var defaultQuests = []core.Quest{
	{
		ID:          1,
		Title:       "Understanding Shardeum's Architecture",
		Description: "Learn about Shardeum's innovative sharding technology and how it achieves linear scalability.",
		XPReward:    100,
		Content: `# Understanding Shardeum's Architecture

Shardeum is an EVM-based Layer 1 blockchain that uses dynamic state sharding to achieve linear scalability.

## Key Features:
- **Dynamic State Sharding**: transactions are processed across multiple shards
- **Linear Scalability**: more nodes means more TPS
- **Low and Predictable Fees**: gas stays low even under heavy usage`,
		Link: "https://shardeum.org/blog/what-is-shardeum-architecture/",
	},
	{
		ID:          2,
		Title:       "Exploring Shardeum's Consensus Mechanism",
		Description: "Dive deep into how Shardeum achieves consensus across shards using innovative algorithms.",
		XPReward:    150,
		Content: `# Exploring Shardeum's Consensus Mechanism

## How It Works:
- **Proof of Quorum (PoQ)**: rapid finality
- **Proof of Stake (PoS)**: network security
- **Cross-shard Communication**: atomic transactions across shards`,
		Link: "https://shardeum.org/blog/consensus-mechanism-proof-of-quorum/",
	},
	{
		ID:          3,
		Title:       "Building on Shardeum: Developer Guide",
		Description: "Learn how to deploy smart contracts and build dApps on Shardeum network.",
		XPReward:    200,
		Content: `# Building on Shardeum: Developer Guide

## Getting Started:
- **EVM Compatibility**: Hardhat, Remix and MetaMask work unchanged
- **Network Configuration**: connect to Shardeum Testnet
- **Deploy Contracts**: same as Ethereum, with lower fees`,
		Link: "https://docs.shardeum.org/developers/getting-started",
	},
	{
		ID:          4,
		Title:       "Shardeum Tokenomics and SHM",
		Description: "Understand the economics behind Shardeum and the SHM token utility.",
		XPReward:    120,
		Content: `# Shardeum Tokenomics and SHM

## Token Utility:
- **Gas Fees**: pay for transaction costs
- **Staking**: secure the network and earn rewards
- **Governance**: vote on network upgrades`,
		Link: "https://shardeum.org/blog/shardeum-tokenomics/",
	},
	{
		ID:          5,
		Title:       "The Future of Web3 with Shardeum",
		Description: "Explore how Shardeum is shaping the future of decentralized applications and Web3.",
		XPReward:    180,
		Content: `# The Future of Web3 with Shardeum

## Vision:
- **Mass Adoption**: blockchain accessible to everyone
- **Developer Friendly**: familiar tools, enhanced capabilities
- **Sustainable Growth**: linear scalability without giving up decentralization`,
		Link: "https://shardeum.org/blog/web3-future-with-shardeum/",
	},
}
