package search

import "github.com/bihub/searchapi/internal/domain/search/result"

// normalizeBatch rescales raw scores to [0,1] with min-max normalization,
// computed within the one batch it is given. Normalization is source-local on
// purpose: each source's score distribution is flattened independently so
// neither can dominate the blend purely through scale.
//
// A batch where every raw score is equal normalizes to all 1.0: ties are
// uniformly maximal, never a division by zero.
func normalizeBatch(batch []result.Scored) []result.Normalized {
	if len(batch) == 0 {
		return nil
	}

	lo, hi := batch[0].RawScore(), batch[0].RawScore()
	for _, item := range batch[1:] {
		if item.RawScore() < lo {
			lo = item.RawScore()
		}
		if item.RawScore() > hi {
			hi = item.RawScore()
		}
	}

	out := make([]result.Normalized, len(batch))
	if hi == lo {
		for i, item := range batch {
			out[i] = result.NewNormalized(item, 1.0)
		}
		return out
	}

	for i, item := range batch {
		out[i] = result.NewNormalized(item, (item.RawScore()-lo)/(hi-lo))
	}
	return out
}
