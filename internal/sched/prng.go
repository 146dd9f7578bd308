package sched

// seededRand is a small, cheap-to-seed generator reseeded on every call from
// an uptime-millisecond reading, matching the original kernel's use of
// rand::SmallRng::seed_from_u64(uptime_ms). SplitMix64 is used here: it is
// the textbook "cheap, good enough for scheduling jitter" seed-to-stream
// generator and needs no persistent state between calls.
func seededRand(seed uint64) uint64 {
	seed += 0x9E3779B97F4A7C15
	z := seed
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
