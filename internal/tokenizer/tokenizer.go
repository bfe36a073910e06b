// Package tokenizer approximates the model tokenizer with whitespace-delimited units.
//
// Units stand in for subword tokens when bounding prompt size, which keeps the
// bound conservative for the languages we serve. The language-code table mirrors
// the mBART-50 vocabulary so forced output-language ids match the served model.
package tokenizer

import (
	"strings"
	"unicode"
)

// mbart50Codes is ordered by vocabulary id, starting at firstLanguageID.
var mbart50Codes = []string{
	"ar_AR", "cs_CZ", "de_DE", "en_XX", "es_XX", "et_EE", "fi_FI", "fr_XX", "gu_IN", "hi_IN",
	"it_IT", "ja_XX", "kk_KZ", "ko_KR", "lt_LT", "lv_LV", "my_MM", "ne_NP", "nl_XX", "ro_RO",
	"ru_RU", "si_LK", "tr_TR", "vi_VN", "zh_CN", "af_ZA", "az_AZ", "bn_IN", "fa_IR", "he_IL",
	"hr_HR", "id_ID", "ka_GE", "km_KH", "mk_MK", "ml_IN", "mn_MN", "mr_IN", "pl_PL", "ps_AF",
	"pt_XX", "sv_SE", "sw_KE", "ta_IN", "te_IN", "th_TH", "tl_XX", "uk_UA", "ur_PK", "xh_ZA",
	"gl_ES", "sl_SI",
}

const firstLanguageID = 250001

var controlTokens = []string{"<s>", "</s>", "<pad>", "<unk>", "<mask>"}

// Encoding is a prompt prepared for the model.
type Encoding struct {
	// Text is the prompt as sent to the model, cut after the last kept unit.
	Text string
	// Units is the number of units in Text.
	Units int
	// TotalUnits is the number of units in the original prompt.
	TotalUnits int
	Truncated  bool
}

// Tokenizer implements unit counting, truncation and special-token stripping.
type Tokenizer struct {
	langIDs map[string]int
	special map[string]struct{}
}

// New returns a tokenizer with the mBART-50 language table.
func New() *Tokenizer {
	t := &Tokenizer{
		langIDs: make(map[string]int, len(mbart50Codes)),
		special: make(map[string]struct{}, len(mbart50Codes)+len(controlTokens)),
	}
	for i, code := range mbart50Codes {
		t.langIDs[code] = firstLanguageID + i
		t.special[code] = struct{}{}
	}
	for _, tok := range controlTokens {
		t.special[tok] = struct{}{}
	}
	return t
}

// LanguageID returns the vocabulary id of a language tag such as "de_DE".
func (t *Tokenizer) LanguageID(tag string) (int, bool) {
	id, ok := t.langIDs[tag]
	return id, ok
}

// IsSpecial reports whether tok is a control or language-code token.
func (t *Tokenizer) IsSpecial(tok string) bool {
	_, ok := t.special[tok]
	return ok
}

// Encode bounds text to maxUnits units, dropping overflow from the tail.
// The kept prefix is returned verbatim. maxUnits <= 0 disables truncation.
func (t *Tokenizer) Encode(text string, maxUnits int) Encoding {
	total, cut := 0, len(text)
	inUnit := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inUnit && total == maxUnits {
				cut = i
			}
			inUnit = false
			continue
		}
		if !inUnit {
			inUnit = true
			total++
		}
	}
	if maxUnits <= 0 || total <= maxUnits {
		return Encoding{Text: text, Units: total, TotalUnits: total}
	}
	return Encoding{
		Text:       text[:cut],
		Units:      maxUnits,
		TotalUnits: total,
		Truncated:  true,
	}
}

// Decode strips control and language-code tokens from generated text
// and collapses the remaining whitespace.
func (t *Tokenizer) Decode(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, f := range fields {
		f = t.stripEmbedded(f)
		if f == "" || t.IsSpecial(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// stripEmbedded removes control tokens glued to a word, e.g. "Paris</s>".
func (t *Tokenizer) stripEmbedded(word string) string {
	for _, tok := range controlTokens {
		word = strings.ReplaceAll(word, tok, "")
	}
	return word
}
