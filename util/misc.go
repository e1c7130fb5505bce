package util

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/zeebo/xxh3"
	"golang.org/x/exp/constraints"
)

// JsonHash hashes the JSON encoding of s. Map keys are encoded in sorted order so
// equal maps hash equally.
func JsonHash(s interface{}) string {
	bs, _ := json.Marshal(s)
	return strconv.FormatUint(xxh3.Hash(bs), 16)
}

func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func CopySlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func CopyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
