package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSpecialtyCacheSize bounds the specialty overlap memo.
const DefaultSpecialtyCacheSize = 4096

// stableHash is a platform-independent 64-bit hash of the concatenated parts.
func stableHash(parts ...string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
	}
	return d.Sum64()
}

type overlap struct {
	matched []string
	needs   int
}

// specialtyOverlap memoises needs-versus-specialties intersections in a
// fixed-capacity LRU. Keys are the canonical content of both lists, so a
// clinician whose specialties change simply misses the cache.
type specialtyOverlap struct {
	cache *lru.Cache[string, overlap]
}

// newSpecialtyOverlap returns an uncached calculator when size is not positive.
func newSpecialtyOverlap(size int) *specialtyOverlap {
	if size <= 0 {
		return &specialtyOverlap{}
	}
	cache, err := lru.New[string, overlap](size)
	if err != nil {
		return &specialtyOverlap{}
	}
	return &specialtyOverlap{cache: cache}
}

func canonical(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// compute returns the sorted distinct needs covered by specialties and the
// number of distinct needs.
func (o *specialtyOverlap) compute(specialties, needs []string) overlap {
	specs := canonical(specialties)
	wanted := canonical(needs)

	var key string
	if o.cache != nil {
		key = overlapKey(specs, wanted)
		if v, ok := o.cache.Get(key); ok {
			return v
		}
	}

	have := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		have[s] = struct{}{}
	}
	result := overlap{needs: len(wanted)}
	for _, n := range wanted {
		if _, ok := have[n]; ok {
			result.matched = append(result.matched, n)
		}
	}

	if o.cache != nil {
		o.cache.Add(key, result)
	}
	return result
}

// overlapKey length-prefixes every entry so distinct list pairs never share
// a key, whatever characters the values contain.
func overlapKey(specs, wanted []string) string {
	var b strings.Builder
	for _, list := range [][]string{specs, wanted} {
		b.WriteString(strconv.Itoa(len(list)))
		b.WriteByte('#')
		for _, v := range list {
			b.WriteString(strconv.Itoa(len(v)))
			b.WriteByte(':')
			b.WriteString(v)
		}
	}
	return b.String()
}

func (o *specialtyOverlap) Len() int {
	if o.cache == nil {
		return 0
	}
	return o.cache.Len()
}
