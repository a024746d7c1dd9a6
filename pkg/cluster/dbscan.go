package cluster

import "math"

// Noise is the bucket index for items too sparse to belong to any cluster.
const Noise = -1

// Result maps cluster index -> member indices into the input vector slice.
// Outliers live under Noise and are never folded into a real cluster.
type Result struct {
	Clusters map[int][]int
	Outliers []int
}

// ClusterCount returns the number of real (non-noise) clusters discovered.
func (r *Result) ClusterCount() int {
	return len(r.Clusters)
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CosineSimilarity is exported for the MECE validator, which reuses the same
// metric over node embeddings.
func CosineSimilarity(a, b []float32) float64 {
	return cosine(a, b)
}

// DBSCAN clusters vectors by density using cosine distance (1 - similarity).
// The cluster count is discovered, not pre-specified. minSamples controls the
// core-point neighborhood; minClusterSize discards clusters that end up too
// small (their members become outliers). Inputs with fewer than
// minClusterSize items total yield an all-outlier result, never an error.
func DBSCAN(vectors [][]float32, minClusterSize, minSamples int, eps float64) *Result {
	n := len(vectors)
	res := &Result{Clusters: make(map[int][]int)}

	if minClusterSize < 2 {
		minClusterSize = 2
	}
	if minSamples < 1 {
		minSamples = 1
	}
	if eps <= 0 {
		eps = 0.35 // cosine distance; works well for normalized sentence vectors
	}

	if n < minClusterSize {
		for i := 0; i < n; i++ {
			res.Outliers = append(res.Outliers, i)
		}
		return res
	}

	// Precompute neighborhoods. O(n^2) is fine at survey-category scale.
	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if 1.0-cosine(vectors[i], vectors[j]) <= eps {
				neighbors[i] = append(neighbors[i], j)
				neighbors[j] = append(neighbors[j], i)
			}
		}
	}

	const (
		unvisited = 0
		noise     = -1
	)
	labels := make([]int, n) // 0 = unvisited, -1 = noise, >0 = cluster id
	next := 1

	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		if len(neighbors[i])+1 < minSamples {
			labels[i] = noise
			continue
		}

		// Expand a new cluster from this core point.
		id := next
		next++
		labels[i] = id

		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]

			if labels[p] == noise {
				labels[p] = id // border point reclaimed from noise
			}
			if labels[p] != unvisited {
				continue
			}
			labels[p] = id
			if len(neighbors[p])+1 >= minSamples {
				queue = append(queue, neighbors[p]...)
			}
		}
	}

	// Collect, demoting undersized clusters to the outlier bucket.
	byID := make(map[int][]int)
	for i, l := range labels {
		if l == noise {
			res.Outliers = append(res.Outliers, i)
			continue
		}
		byID[l] = append(byID[l], i)
	}

	idx := 0
	for id := 1; id < next; id++ {
		members := byID[id]
		if len(members) == 0 {
			continue
		}
		if len(members) < minClusterSize {
			res.Outliers = append(res.Outliers, members...)
			continue
		}
		res.Clusters[idx] = members
		idx++
	}

	return res
}

// Centroid returns the unit-normalized mean of the member vectors.
func Centroid(vectors [][]float32, members []int) []float32 {
	if len(members) == 0 || len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[members[0]])
	sum := make([]float32, dim)
	for _, m := range members {
		for j := 0; j < dim && j < len(vectors[m]); j++ {
			sum[j] += vectors[m][j]
		}
	}
	inv := 1.0 / float32(len(members))
	var mag float64
	for j := range sum {
		sum[j] *= inv
		mag += float64(sum[j]) * float64(sum[j])
	}
	mag = math.Sqrt(mag)
	if mag == 0 {
		return sum
	}
	for j := range sum {
		sum[j] = float32(float64(sum[j]) / mag)
	}
	return sum
}
