// Copyright 2026 Vocalia Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package evaluate

import (
	"math"

	"github.com/vocalia/anamnesis/core"
)

// precisionAtK is the fraction of the first k retrieved items that are
// relevant. The denominator is k even when fewer items were retrieved.
func precisionAtK(retrieved []core.ID, relevant map[core.ID]bool, k int) float64 {
	if k <= 0 {
		return 0
	}
	hits := 0
	for i, id := range retrieved {
		if i >= k {
			break
		}
		if relevant[id] {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// recallAtK is the fraction of relevant items found in the first k
// retrieved items.
func recallAtK(retrieved []core.ID, relevant map[core.ID]bool, k int) float64 {
	if k <= 0 || len(relevant) == 0 {
		return 0
	}
	hits := 0
	for i, id := range retrieved {
		if i >= k {
			break
		}
		if relevant[id] {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

// averagePrecision averages precision at each rank where a relevant item
// appears, over the total number of relevant items.
func averagePrecision(retrieved []core.ID, relevant map[core.ID]bool) float64 {
	if len(relevant) == 0 {
		return 0
	}
	hits := 0
	sum := 0.0
	for i, id := range retrieved {
		if relevant[id] {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	return sum / float64(len(relevant))
}

// ndcgAtK computes normalized discounted cumulative gain with binary
// gains: a relevant item at rank i contributes 1/log2(i+1).
func ndcgAtK(retrieved []core.ID, relevant map[core.ID]bool, k int) float64 {
	if k <= 0 || len(relevant) == 0 {
		return 0
	}

	dcg := 0.0
	for i, id := range retrieved {
		if i >= k {
			break
		}
		if relevant[id] {
			dcg += 1 / math.Log2(float64(i)+2)
		}
	}

	ideal := len(relevant)
	if ideal > k {
		ideal = k
	}
	idcg := 0.0
	for i := 0; i < ideal; i++ {
		idcg += 1 / math.Log2(float64(i)+2)
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}
