// internal/blockchain/blockchain.go
package blockchain

import "github.com/gagliardetto/solana-go"

// LamportsPerSOL количество лампортов в одном SOL.
const LamportsPerSOL uint64 = solana.LAMPORTS_PER_SOL
