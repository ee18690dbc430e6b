package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"classquest/internal/seed"
)

// LegacyKind tags the fixed-logic legacy challenges. Each kind carries its
// own generation and verification closure, selected through the lookup table
// below rather than positional branching.
type LegacyKind int

const (
	LegacyTokenRotation LegacyKind = iota
	LegacyPrefixCode
	LegacySourceExec
	LegacyImageForensics
	LegacyHashCrack
	LegacyRemoteClue
	LegacyFinalGauntlet
)

// LegacyChallenge is one entry of the legacy challenge table. Generate and
// Verify are pure functions of (token, seed); nothing needs to be persisted
// to re-derive the expected answer.
type LegacyChallenge struct {
	Kind        LegacyKind
	Title       string
	MaxAttempts int
	// CachesExpected marks the kinds whose expected answer is persisted the
	// first time it is computed. The cache is advisory: recomputation from
	// seed is always the source of truth.
	CachesExpected bool
	// UsesArtifact marks the kinds that build an expensive external artifact
	// guarded by the lock manager.
	UsesArtifact bool
	// UsesRemote marks the kinds that stage best-effort files on the remote
	// artifact host.
	UsesRemote bool
	Hints      []string
	Generate   func(token, seedHex string) (*Content, error)
	Verify     func(submitted, token, seedHex string) bool
}

var legacyTable = map[LegacyKind]LegacyChallenge{
	LegacyTokenRotation: {
		Kind:        LegacyTokenRotation,
		Title:       "Rotated Token",
		MaxAttempts: 5,
		Hints: []string{
			"The scrambled text is your own quest token.",
			"Each letter has been shifted the same number of places.",
		},
		Generate: generateTokenRotation,
		Verify: func(submitted, token, seedHex string) bool {
			return normalize(submitted) == normalize(token)
		},
	},
	LegacyPrefixCode: {
		Kind:        LegacyPrefixCode,
		Title:       "Prefix Code",
		MaxAttempts: 5,
		Hints: []string{
			"The code starts with the first three characters of your token.",
			"Multiply, then add. The dash matters.",
		},
		Generate: generatePrefixCode,
		Verify: func(submitted, token, seedHex string) bool {
			return normalize(submitted) == prefixCodeAnswer(token, seedHex)
		},
	},
	LegacySourceExec: {
		Kind:           LegacySourceExec,
		Title:          "Trace the Program",
		MaxAttempts:    4,
		CachesExpected: true,
		Hints: []string{
			"Work through the program line by line; nothing is hidden.",
			"The printed value joins a word and a product with a dash.",
		},
		Generate: generateSourceExec,
		Verify: func(submitted, token, seedHex string) bool {
			return normalize(submitted) == sourceExecAnswer(seedHex)
		},
	},
	LegacyImageForensics: {
		Kind:           LegacyImageForensics,
		Title:          "Faded Evidence",
		MaxAttempts:    4,
		CachesExpected: true,
		UsesArtifact:   true,
		Hints: []string{
			"Adjust the brightness or contrast of the image.",
			"The code is six characters, letters and digits.",
		},
		Generate: generateImageForensics,
		Verify: func(submitted, token, seedHex string) bool {
			return normalize(submitted) == imageForensicsCode(seedHex)
		},
	},
	LegacyHashCrack: {
		Kind:        LegacyHashCrack,
		Title:       "Crack the Digest",
		MaxAttempts: 5,
		Hints: []string{
			"The input space is tiny: four digits.",
			"Hash candidates until one matches.",
		},
		Generate: generateHashCrack,
		Verify: func(submitted, token, seedHex string) bool {
			return normalize(submitted) == hashCrackCode(seedHex)
		},
	},
	LegacyRemoteClue: {
		Kind:        LegacyRemoteClue,
		Title:       "Remote Drop",
		MaxAttempts: 3,
		UsesRemote:  true,
		Hints: []string{
			"Look for a branch named after your quest token.",
			"The clue file sits at the branch root.",
		},
		Generate: generateRemoteClue,
		Verify: func(submitted, token, seedHex string) bool {
			return normalize(submitted) == remoteClueCode(seedHex)
		},
	},
	LegacyFinalGauntlet: {
		Kind:        LegacyFinalGauntlet,
		Title:       "Final Gauntlet",
		MaxAttempts: 3,
		Hints: []string{
			"Read your token backwards.",
			"The suffix is a checksum of the original token, mod 97.",
		},
		Generate: generateFinalGauntlet,
		Verify: func(submitted, token, seedHex string) bool {
			return normalize(submitted) == finalGauntletAnswer(token)
		},
	},
}

// Legacy returns the table entry for a kind
func Legacy(kind LegacyKind) (LegacyChallenge, bool) {
	c, ok := legacyTable[kind]
	return c, ok
}

// LegacyKindCount is the number of legacy challenge kinds
const LegacyKindCount = 7

// AllLegacyKinds lists the kinds in slot order
func AllLegacyKinds() []LegacyKind {
	kinds := make([]LegacyKind, 0, LegacyKindCount)
	for i := 0; i < LegacyKindCount; i++ {
		kinds = append(kinds, LegacyKind(i))
	}
	return kinds
}

func generateTokenRotation(token, seedHex string) (*Content, error) {
	rng := seed.Rand(seedHex)
	shift := 1 + rng.Intn(24)
	return &Content{
		DisplayData:    CaesarShift(token, shift),
		ExpectedAnswer: normalize(token),
		Metadata:       map[string]string{"cipher": SchemeCaesar, "shift": strconv.Itoa(shift)},
	}, nil
}

// prefixCodeAnswer derives "<first 3 of token>-<4 digits>" from the seed
func prefixCodeAnswer(token, seedHex string) string {
	rng := seed.Rand(seedHex)
	digits := 1000 + rng.Intn(9000)
	prefix := normalize(token)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s-%d", prefix, digits)
}

func generatePrefixCode(token, seedHex string) (*Content, error) {
	rng := seed.Rand(seedHex)
	digits := 1000 + rng.Intn(9000)
	a := 2 + rng.Intn(8)
	b := 2 + rng.Intn(8)
	c := digits - a*b

	display := fmt.Sprintf(
		"Your code is PREFIX-N.\n"+
			"PREFIX is the first three characters of your quest token.\n"+
			"N = a × b + c, where a = %d, b = %d, c = %d.",
		a, b, c)

	return &Content{
		DisplayData:    display,
		ExpectedAnswer: prefixCodeAnswer(token, seedHex),
		Metadata:       map[string]string{"format": "XXX-NNNN"},
	}, nil
}

// sourceExecAnswer recomputes the output of the synthetic program
func sourceExecAnswer(seedHex string) string {
	rng := seed.Rand(seedHex)
	word := codewords[rng.Intn(len(codewords))]
	n1 := 10 + rng.Intn(90)
	n2 := 2 + rng.Intn(8)
	return fmt.Sprintf("%s-%d", word, n1*n2)
}

func generateSourceExec(token, seedHex string) (*Content, error) {
	rng := seed.Rand(seedHex)
	word := codewords[rng.Intn(len(codewords))]
	n1 := 10 + rng.Intn(90)
	n2 := 2 + rng.Intn(8)

	listing := strings.Join([]string{
		"package main",
		"",
		"import \"fmt\"",
		"",
		"func main() {",
		fmt.Sprintf("\tword := %q", word),
		fmt.Sprintf("\tcount := %d", n1),
		"\ttotal := 0",
		fmt.Sprintf("\tfor i := 0; i < %d; i++ {", n2),
		"\t\ttotal += count",
		"\t}",
		"\tfmt.Printf(\"%s-%d\\n\", word, total)",
		"}",
	}, "\n")

	return &Content{
		DisplayData:    listing,
		ExpectedAnswer: fmt.Sprintf("%s-%d", word, n1*n2),
		Metadata:       map[string]string{"language": "go", "task": "What does this program print?"},
	}, nil
}

// imageForensicsCode derives the six-character code hidden in the artifact
func imageForensicsCode(seedHex string) string {
	rng := seed.Rand(seedHex)
	return randomCode(rng, upperAlnum, 6)
}

func generateImageForensics(token, seedHex string) (*Content, error) {
	return &Content{
		DisplayData:    "Download the evidence image for your quest token and recover the faded code.",
		ExpectedAnswer: imageForensicsCode(seedHex),
		Metadata:       map[string]string{"artifact": "png", "format": "6 characters, A-Z and 0-9"},
	}, nil
}

// hashCrackCode derives the four-digit code disclosed only as a digest
func hashCrackCode(seedHex string) string {
	rng := seed.Rand(seedHex)
	return fmt.Sprintf("%04d", rng.Intn(10000))
}

func generateHashCrack(token, seedHex string) (*Content, error) {
	code := hashCrackCode(seedHex)
	digest := sha256.Sum256([]byte(code))
	return &Content{
		DisplayData:    hex.EncodeToString(digest[:]),
		ExpectedAnswer: code,
		Metadata:       map[string]string{"algorithm": "SHA-256", "format": "4 digits"},
	}, nil
}

// remoteClueCode derives the code staged on the remote host. The answer is
// seed-derived so progress never blocks on the remote being reachable.
func remoteClueCode(seedHex string) string {
	rng := seed.Rand(seedHex)
	return fmt.Sprintf("%s-%02d", codewords[rng.Intn(len(codewords))], rng.Intn(100))
}

// RemoteBranch names the per-student staging branch for a token
func RemoteBranch(token string) string {
	return "quest/" + strings.ToLower(token)
}

func generateRemoteClue(token, seedHex string) (*Content, error) {
	branch := RemoteBranch(token)
	return &Content{
		DisplayData:    fmt.Sprintf("A clue file has been staged on the class repository, branch %q.", branch),
		ExpectedAnswer: remoteClueCode(seedHex),
		Metadata:       map[string]string{"branch": branch, "file": "CLUE.txt"},
	}, nil
}

// finalGauntletAnswer combines the reversed token with its checksum mod 97
func finalGauntletAnswer(token string) string {
	token = normalize(token)
	reversed := []byte(token)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	sum := 0
	for _, b := range []byte(token) {
		sum += int(b)
	}
	return fmt.Sprintf("%s-%02d", reversed, sum%97)
}

func generateFinalGauntlet(token, seedHex string) (*Content, error) {
	return &Content{
		DisplayData: "Mirror your quest token, then append a dash and the checksum " +
			"of the original token (sum of character codes, mod 97, two digits).",
		ExpectedAnswer: finalGauntletAnswer(token),
		Metadata:       map[string]string{"format": "NEKOT-NN"},
	}, nil
}
