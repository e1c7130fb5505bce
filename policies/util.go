package policies

import (
	"math"
	"time"

	"math/rand/v2"
)

// QTable maps state hashes to action hashes to values.
type QTable struct {
	table map[string]map[string]float64

	rand *rand.Rand
}

func NewQTable(rng *rand.Rand) *QTable {
	return &QTable{
		table: make(map[string]map[string]float64),
		rand:  rng,
	}
}

func (q *QTable) GetAll(state string) (map[string]float64, bool) {
	values, ok := q.table[state]
	return values, ok
}

func (q *QTable) Get(state, action string, def float64) float64 {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	if _, ok := q.table[state][action]; !ok {
		q.table[state][action] = def
	}
	return q.table[state][action]
}

func (q *QTable) Set(state, action string, val float64) {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	q.table[state][action] = val
}

func (q *QTable) HasState(state string) bool {
	_, ok := q.table[state]
	return ok
}

func (q *QTable) Size() int {
	return len(q.table)
}

// MaxValue is the largest value among actions without touching the table.
func (q *QTable) MaxValue(state string, actions []string, def float64) float64 {
	if len(actions) == 0 {
		return def
	}
	maxVal := math.Inf(-1)
	for _, a := range actions {
		val, ok := q.table[state][a]
		if !ok {
			val = def
		}
		maxVal = math.Max(maxVal, val)
	}
	return maxVal
}

// MaxAmong returns the best of the given actions, breaking ties at random.
func (q *QTable) MaxAmong(state string, actions []string, def float64) (string, float64) {
	if len(actions) == 0 {
		return "", def
	}
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	maxActions := make([]string, 0)
	maxVal := math.Inf(-1)
	for _, a := range actions {
		if _, ok := q.table[state][a]; !ok {
			q.table[state][a] = def
		}
		val := q.table[state][a]
		if val > maxVal {
			maxActions = make([]string, 0)
			maxVal = val
		}
		if val == maxVal {
			maxActions = append(maxActions, a)
		}
	}

	randAction := q.rand.IntN(len(maxActions))
	return maxActions[randAction], maxVal
}

// Export returns a deep copy of the table.
func (q *QTable) Export() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(q.table))
	for state, entries := range q.table {
		copied := make(map[string]float64, len(entries))
		for a, v := range entries {
			copied[a] = v
		}
		out[state] = copied
	}
	return out
}

func (q *QTable) Import(table map[string]map[string]float64) {
	q.table = make(map[string]map[string]float64, len(table))
	for state, entries := range table {
		copied := make(map[string]float64, len(entries))
		for a, v := range entries {
			copied[a] = v
		}
		q.table[state] = copied
	}
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed))
}

func hashes[A interface{ Hash() string }](actions []A) ([]string, map[string]A) {
	out := make([]string, len(actions))
	byHash := make(map[string]A, len(actions))
	for i, a := range actions {
		h := a.Hash()
		out[i] = h
		byHash[h] = a
	}
	return out, byHash
}

// softmax turns preferences into a distribution, shifting by the maximum for stability.
func softmax(vals []float64, temperature float64) []float64 {
	if temperature <= 0 {
		temperature = 1
	}
	largest := math.Inf(-1)
	for _, v := range vals {
		largest = math.Max(largest, v)
	}
	weights := make([]float64, len(vals))
	sum := 0.0
	for i, v := range vals {
		weights[i] = math.Exp((v - largest) / temperature)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}
