package mutate

import (
	"math/rand"

	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
	"github.com/rcourtman/mcp-fuzzer/internal/schema"
	"github.com/rcourtman/mcp-fuzzer/internal/seedpool"
)

// MinBatchSize and MaxBatchSize bound the number of messages a BatchMutator
// composes.
const (
	MinBatchSize = 2
	MaxBatchSize = 5
)

// BatchMutator composes a JSON-RPC batch (an array of requests and
// notifications), occasionally duplicating ids to probe collation per
// "Batch collation".
type BatchMutator struct {
	protocol *ProtocolMutator
	rng      *rand.Rand
}

// NewBatchMutator builds a BatchMutator reusing a ProtocolMutator for the
// individual messages in a batch.
func NewBatchMutator(gen *schema.Generator, pool *seedpool.Pool, seed int64) *BatchMutator {
	return &BatchMutator{
		protocol: NewProtocolMutator(gen, pool, seed),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Mutate builds a batch of between MinBatchSize and MaxBatchSize messages,
// drawn from kinds, mixing requests and notifications.
func (m *BatchMutator) Mutate(kinds []Kind, phase schema.Phase, runIndex int) ([]*jsonrpc.Message, error) {
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	n := MinBatchSize + m.rng.Intn(MaxBatchSize-MinBatchSize+1)

	batch := make([]*jsonrpc.Message, 0, n)
	for i := 0; i < n; i++ {
		kind := kinds[m.rng.Intn(len(kinds))]
		msg, err := m.protocol.Mutate(kind, phase, runIndex+i)
		if err != nil {
			return nil, err
		}
		batch = append(batch, msg)
	}

	if phase == schema.Aggressive && m.rng.Float64() < 0.3 {
		duplicateID(batch, m.rng)
	}
	return batch, nil
}

// duplicateID picks two request messages in batch (if at least two exist)
// and forces them to share an id duplicate-id collation
// scenario (S3).
func duplicateID(batch []*jsonrpc.Message, rng *rand.Rand) {
	var reqIdx []int
	for i, msg := range batch {
		if msg.HasID() {
			reqIdx = append(reqIdx, i)
		}
	}
	if len(reqIdx) < 2 {
		return
	}
	i := rng.Intn(len(reqIdx))
	j := rng.Intn(len(reqIdx) - 1)
	if j >= i {
		j++
	}
	a, b := reqIdx[i], reqIdx[j]
	*batch[b] = batch[b].WithID(batch[a].ID)
}
