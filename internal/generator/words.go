package generator

import (
	"fmt"
	mathrand "math/rand"
)

// codewords is the default answer pool for generated challenges
var codewords = []string{
	"FALCON", "RAVEN", "COMET", "GLACIER", "EMBER", "TUNDRA", "ZEPHYR", "ONYX",
	"QUASAR", "NIMBUS", "BASILISK", "MERIDIAN", "OBSIDIAN", "TALON", "CIPHER",
	"VORTEX", "SUMMIT", "HARBOR", "LANTERN", "MIRAGE", "PYLON", "SABLE",
	"TEMPEST", "WILLOW", "ZENITH", "COBALT", "DYNAMO", "ECLIPSE", "FATHOM",
	"GRIFFIN", "HALCYON", "ISOTOPE", "JUNIPER", "KESTREL", "LUMEN", "MAGNET",
}

// keywords is the pool of Vigenère keywords
var keywords = []string{
	"ORBIT", "PRISM", "DELTA", "AMBER", "FROST", "RIDGE", "STORM", "CEDAR",
}

const upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const lowerAlnum = "abcdefghijklmnopqrstuvwxyz0123456789"

// pickCodeword returns a callsign-style answer like "FALCON-042"
func pickCodeword(rng *mathrand.Rand, pool []string) string {
	if len(pool) == 0 {
		pool = codewords
	}
	word := pool[rng.Intn(len(pool))]
	return fmt.Sprintf("%s-%03d", word, rng.Intn(1000))
}

// randomCode returns n characters drawn from the given alphabet
func randomCode(rng *mathrand.Rand, alphabet string, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(out)
}
