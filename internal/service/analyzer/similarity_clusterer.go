package analyzer

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/pkg/hash"
)

const (
	DefaultComplexityThreshold = 3
	DefaultVolumeTolerance     = 0.001
)

type ClusterConfig struct {
	// Deltas with ComplexityThreshold features or fewer are not evidence.
	ComplexityThreshold int
	// Volumes closer than VolumeTolerance mm³ count as the same output.
	VolumeTolerance float64
}

type SimilarityClusterer interface {
	// Cluster returns a verdict for every student present in deltas or
	// volumes. Students absent from volumes contribute no volume evidence.
	Cluster(deltas map[string]models.Signature, volumes map[string]float64) (map[string]models.PlagiarismVerdict, error)
	HashDelta(delta models.Signature) (string, error)
}

type similarityClusterer struct {
	hasher hash.Hasher
	config ClusterConfig
	logger zerolog.Logger
}

func NewSimilarityClusterer(hasher hash.Hasher, config ClusterConfig, logger zerolog.Logger) SimilarityClusterer {
	if config.ComplexityThreshold < 0 {
		config.ComplexityThreshold = DefaultComplexityThreshold
	}
	if config.VolumeTolerance < 0 {
		config.VolumeTolerance = DefaultVolumeTolerance
	}

	return &similarityClusterer{
		hasher: hasher,
		config: config,
		logger: logger,
	}
}

// HashDelta hashes a canonical serialization of the delta. Each feature is
// encoded as a JSON object, and encoding/json writes map keys in sorted
// order, so the digest does not depend on struct field order.
func (c *similarityClusterer) HashDelta(delta models.Signature) (string, error) {
	canonical := make([]map[string]interface{}, 0, len(delta))
	for _, f := range delta {
		entry := map[string]interface{}{
			"name": f.Name,
			"type": f.Type,
		}
		if f.SketchPointCount != nil {
			entry["sketch_point_count"] = *f.SketchPointCount
		}
		if f.SketchSegmentCount != nil {
			entry["sketch_segment_count"] = *f.SketchSegmentCount
		}
		canonical = append(canonical, entry)
	}

	payload, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("failed to serialize delta: %w", err)
	}

	return c.hasher.Calculate(payload)
}

func (c *similarityClusterer) Cluster(deltas map[string]models.Signature, volumes map[string]float64) (map[string]models.PlagiarismVerdict, error) {
	students := studentIDs(deltas, volumes)
	links := make(map[string]map[string]struct{}, len(students))
	evidence := make(map[string]map[models.Evidence]struct{})

	link := func(a, b string, kind models.Evidence) {
		for _, pair := range [][2]string{{a, b}, {b, a}} {
			if links[pair[0]] == nil {
				links[pair[0]] = make(map[string]struct{})
			}
			links[pair[0]][pair[1]] = struct{}{}
			if evidence[pair[0]] == nil {
				evidence[pair[0]] = make(map[models.Evidence]struct{})
			}
			evidence[pair[0]][kind] = struct{}{}
		}
	}

	groups, err := c.groupByDeltaHash(deltas)
	if err != nil {
		return nil, err
	}
	for _, members := range groups {
		// A star is enough: connectivity makes the whole group one cluster.
		for _, other := range members[1:] {
			link(members[0], other, models.EvidenceDeltaHash)
		}
	}

	for _, pair := range c.volumePairs(volumes) {
		link(pair[0], pair[1], models.EvidenceVolume)
	}

	verdicts := make(map[string]models.PlagiarismVerdict, len(students))
	for _, cluster := range components(students, links) {
		for _, id := range cluster {
			peers := make([]string, 0, len(cluster)-1)
			for _, other := range cluster {
				if other != id {
					peers = append(peers, other)
				}
			}
			verdicts[id] = models.PlagiarismVerdict{
				IsPlagiarised: len(peers) > 0,
				CopiedFrom:    peers,
				Evidence:      evidenceList(evidence[id]),
			}
		}
		if len(cluster) > 1 {
			c.logger.Info().
				Strs("students", cluster).
				Msg("Plagiarism cluster detected")
		}
	}

	return verdicts, nil
}

// groupByDeltaHash keeps only hash groups with two or more members; each
// member list is sorted.
func (c *similarityClusterer) groupByDeltaHash(deltas map[string]models.Signature) ([][]string, error) {
	byHash := make(map[string][]string)
	for id, delta := range deltas {
		if len(delta) <= c.config.ComplexityThreshold {
			continue
		}
		digest, err := c.HashDelta(delta)
		if err != nil {
			return nil, fmt.Errorf("failed to hash delta for %s: %w", id, err)
		}
		byHash[digest] = append(byHash[digest], id)
	}

	groups := make([][]string, 0)
	for digest, members := range byHash {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		c.logger.Debug().
			Str("delta_hash", digest).
			Strs("students", members).
			Msg("Identical delta group")
		groups = append(groups, members)
	}
	return groups, nil
}

// volumePairs returns every unordered pair whose volumes differ by less than
// the tolerance. Non-positive volumes are the degraded default of a failed
// extraction and never count as evidence.
func (c *similarityClusterer) volumePairs(volumes map[string]float64) [][2]string {
	type entry struct {
		id     string
		volume float64
	}

	entries := make([]entry, 0, len(volumes))
	for id, v := range volumes {
		if v > 0 {
			entries = append(entries, entry{id: id, volume: v})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].volume == entries[j].volume {
			return entries[i].id < entries[j].id
		}
		return entries[i].volume < entries[j].volume
	})

	pairs := make([][2]string, 0)
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].volume-entries[i].volume >= c.config.VolumeTolerance {
				break
			}
			pairs = append(pairs, [2]string{entries[i].id, entries[j].id})
		}
	}
	return pairs
}

// components returns the connected components of the evidence graph, each
// sorted, visiting students in sorted order so the output is deterministic.
func components(students []string, links map[string]map[string]struct{}) [][]string {
	visited := make(map[string]bool, len(students))
	out := make([][]string, 0, len(students))

	for _, start := range students {
		if visited[start] {
			continue
		}
		visited[start] = true
		cluster := []string{start}
		queue := []string{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for next := range links[cur] {
				if !visited[next] {
					visited[next] = true
					cluster = append(cluster, next)
					queue = append(queue, next)
				}
			}
		}
		sort.Strings(cluster)
		out = append(out, cluster)
	}
	return out
}

func studentIDs(deltas map[string]models.Signature, volumes map[string]float64) []string {
	seen := make(map[string]struct{}, len(deltas)+len(volumes))
	for id := range deltas {
		seen[id] = struct{}{}
	}
	for id := range volumes {
		seen[id] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func evidenceList(set map[models.Evidence]struct{}) []models.Evidence {
	if len(set) == 0 {
		return nil
	}
	out := make([]models.Evidence, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
