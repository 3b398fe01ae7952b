// Package cluster groups embeddings with k-means over cosine distance.
//
// Centroids are seeded with k-means++ (D² sampling), iterated until no point
// changes cluster, and scored with the silhouette coefficient so the number
// of clusters can be chosen automatically. All randomness comes from the
// *rand.Rand passed in, so a fixed seed reproduces a run exactly.
package cluster
