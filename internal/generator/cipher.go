package generator

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"classquest/internal/models"
	"classquest/internal/seed"
)

// cipher schemes selectable by config, or seed-chosen when unset
const (
	SchemeCaesar   = "caesar"
	SchemeROT13    = "rot13"
	SchemeAtbash   = "atbash"
	SchemeVigenere = "vigenere"
	SchemeBase64   = "base64"
)

var cipherSchemes = []string{SchemeCaesar, SchemeROT13, SchemeAtbash, SchemeVigenere, SchemeBase64}

// cipherGenerator encodes a pool-selected answer with a seed-chosen scheme.
// The cipher type (and shift/keyword where the scheme requires it) is
// disclosed in metadata; the plaintext never is.
type cipherGenerator struct{}

func (g *cipherGenerator) Type() models.TemplateType {
	return models.TemplateCipher
}

func (g *cipherGenerator) Generate(cfg map[string]any, seedHex string) (*Content, error) {
	rng := seed.Rand(seedHex)

	answer := pickCodeword(rng, cfgStrings(cfg, "answers"))

	scheme := cfgString(cfg, "scheme")
	if scheme == "" {
		scheme = cipherSchemes[rng.Intn(len(cipherSchemes))]
	}

	metadata := map[string]string{"cipher": scheme}
	var encoded string

	switch scheme {
	case SchemeCaesar:
		shift := 1 + rng.Intn(25)
		encoded = CaesarShift(answer, shift)
		metadata["shift"] = strconv.Itoa(shift)
	case SchemeROT13:
		encoded = CaesarShift(answer, 13)
	case SchemeAtbash:
		encoded = Atbash(answer)
	case SchemeVigenere:
		keyword := keywords[rng.Intn(len(keywords))]
		encoded = VigenereEncode(answer, keyword)
		metadata["keyword"] = keyword
	case SchemeBase64:
		salt := randomCode(rng, upperAlnum, 4)
		encoded = base64.StdEncoding.EncodeToString([]byte(salt + ":" + answer))
		metadata["salt"] = salt
	default:
		return nil, fmt.Errorf("unsupported cipher scheme %q", scheme)
	}

	return &Content{
		DisplayData:    encoded,
		ExpectedAnswer: answer,
		Metadata:       metadata,
	}, nil
}

func (g *cipherGenerator) ValidateConfig(cfg map[string]any) []string {
	var errs []string

	if scheme := cfgString(cfg, "scheme"); scheme != "" {
		valid := false
		for _, s := range cipherSchemes {
			if s == scheme {
				valid = true
				break
			}
		}
		if !valid {
			errs = append(errs, fmt.Sprintf("scheme: unsupported value %q", scheme))
		}
	}

	if cfg != nil {
		if _, ok := cfg["answers"]; ok {
			answers := cfgStrings(cfg, "answers")
			if len(answers) == 0 {
				errs = append(errs, "answers: must be a non-empty list of strings")
			}
			for i, a := range answers {
				if strings.TrimSpace(a) == "" {
					errs = append(errs, fmt.Sprintf("answers[%d]: must not be blank", i))
				}
			}
		}
	}

	return errs
}

// CaesarShift rotates A-Z and a-z by shift positions, leaving other runes
// untouched. A shift of 13 is ROT13.
func CaesarShift(s string, shift int) string {
	shift = ((shift % 26) + 26) % 26
	out := []rune(s)
	for i, r := range out {
		switch {
		case r >= 'A' && r <= 'Z':
			out[i] = 'A' + (r-'A'+rune(shift))%26
		case r >= 'a' && r <= 'z':
			out[i] = 'a' + (r-'a'+rune(shift))%26
		}
	}
	return string(out)
}

// Atbash mirrors each letter across the alphabet (A<->Z, B<->Y, ...)
func Atbash(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch {
		case r >= 'A' && r <= 'Z':
			out[i] = 'Z' - (r - 'A')
		case r >= 'a' && r <= 'z':
			out[i] = 'z' - (r - 'a')
		}
	}
	return string(out)
}

// VigenereEncode applies a Vigenère cipher with the given keyword. The key
// only advances on letters so punctuation and digits pass through unchanged.
func VigenereEncode(s, keyword string) string {
	keyword = strings.ToUpper(keyword)
	if keyword == "" {
		return s
	}
	out := []rune(s)
	k := 0
	for i, r := range out {
		key := rune(keyword[k%len(keyword)] - 'A')
		switch {
		case r >= 'A' && r <= 'Z':
			out[i] = 'A' + (r-'A'+key)%26
			k++
		case r >= 'a' && r <= 'z':
			out[i] = 'a' + (r-'a'+key)%26
			k++
		}
	}
	return string(out)
}

// VigenereDecode reverses VigenereEncode with the same keyword
func VigenereDecode(s, keyword string) string {
	keyword = strings.ToUpper(keyword)
	if keyword == "" {
		return s
	}
	out := []rune(s)
	k := 0
	for i, r := range out {
		key := rune(keyword[k%len(keyword)] - 'A')
		switch {
		case r >= 'A' && r <= 'Z':
			out[i] = 'A' + (r-'A'+26-key)%26
			k++
		case r >= 'a' && r <= 'z':
			out[i] = 'a' + (r-'a'+26-key)%26
			k++
		}
	}
	return string(out)
}
