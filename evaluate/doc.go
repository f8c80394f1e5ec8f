// Package evaluate scores a retrieval function against a labeled query
// set using standard information retrieval metrics: Precision@K,
// Recall@K, Mean Average Precision, and NDCG@K with binary gains.
package evaluate
