package handlers

import (
	"github.com/cespare/xxhash/v2"

	effectmodel "github.com/on-the-ground/effectpipe/effects/model"
)

func hash(key string) uint64 {
	return xxhash.Sum64String(key)
}

// getIndexByHash maps a payload onto one of numChs worker channels.
// Payloads sharing a PartitionKey always land on the same worker.
func getIndexByHash(payload effectmodel.Partitionable, numChs int) int {
	switch numChs {
	case 0:
		panic("number of channels cannot be 0")
	case 1:
		return 0
	default:
		return int(hash(payload.PartitionKey()) % uint64(numChs))
	}
}
