package agentpool

import (
	"math/rand"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// Batchable is implemented by archetypes whose population-level behavior
// can be replaced by the vectorized statistical batch generator: a
// participation probability, a size range, and a price deviation around
// the current reference price.
type Batchable interface {
	BatchParams() (tradeProbability float64, minSize, maxSize, priceDeviation decimal.Decimal)
}

// generateBatch implements the §4.7 statistical batch generator for a
// population of n identical agents sharing params, against current
// referencePrice. Orders are LIMIT GTC, one per participant.
func generateBatch(agentIDPrefix string, n int, p float64, minSize, maxSize, deviation, referencePrice decimal.Decimal, baseTsUs int64, rng *rand.Rand) []simtypes.Order {
	minF := minSize.InexactFloat64()
	maxF := maxSize.InexactFloat64()
	devF := deviation.InexactFloat64()
	priceF := referencePrice.InexactFloat64()

	sizeDist := distuv.Uniform{Min: minF, Max: maxF, Src: rng}
	offsetDist := distuv.Uniform{Min: -devF, Max: devF, Src: rng}
	driftDist := distuv.Normal{Mu: 0, Sigma: 0.001, Src: rng}
	sideDist := distuv.Uniform{Min: 0.45, Max: 0.55, Src: rng}

	orders := make([]simtypes.Order, 0, n)
	for i := 0; i < n; i++ {
		if rng.Float64() >= p {
			continue
		}
		q := sideDist.Rand()
		side := simtypes.Buy
		if rng.Float64() >= q {
			side = simtypes.Sell
		}
		size := decimal.NewFromFloat(sizeDist.Rand())
		offset := offsetDist.Rand() + driftDist.Rand()
		target := decimal.NewFromFloat(priceF * (1 + offset))
		jitterUs := int64(rng.Intn(1000))

		orders = append(orders, simtypes.Order{
			OrderID:     matching.NewOrderID(),
			AgentID:     agentIDPrefix,
			Side:        side,
			OrderType:   simtypes.Limit,
			Size:        size,
			Price:       &target,
			TIF:         simtypes.GTC,
			TimestampUs: baseTsUs + jitterUs,
			Status:      simtypes.Pending,
		})
	}
	return orders
}
