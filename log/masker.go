/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"regexp"
	"strings"
)

// Mask replaces a secret matched by RegExp.
type Mask struct {
	RegExp *regexp.Regexp
	Mask   string
}

// NewMask compiles a mask from its configuration. It panics on invalid regexp.
func NewMask(cfg MaskConfig) Mask {
	return Mask{regexp.MustCompile(cfg.RegExp), cfg.Mask}
}

// FieldMasker masks a single named field in every configured format.
type FieldMasker struct {
	Field string // lowercase
	Masks []Mask
}

// NewFieldMasker builds a FieldMasker from the rule.
func NewFieldMasker(cfg MaskingRuleConfig) FieldMasker {
	fMask := FieldMasker{Field: strings.ToLower(cfg.Field), Masks: make([]Mask, 0, len(cfg.Masks)+len(cfg.Formats))}
	for _, repCfg := range cfg.Masks {
		fMask.Masks = append(fMask.Masks, NewMask(repCfg))
	}
	for _, format := range cfg.Formats {
		switch format {
		case FieldMaskFormatHTTPHeader:
			fMask.Masks = append(fMask.Masks, NewMask(MaskConfig{
				`(?i)` + cfg.Field + `: [^\r\n]+`, cfg.Field + ": ***"}))
		case FieldMaskFormatJSON:
			fMask.Masks = append(fMask.Masks, NewMask(MaskConfig{
				`(?i)"` + cfg.Field + `"\s*:\s*"(?:[^"\\]|\\.)*"`, `"` + cfg.Field + `": "***"`}))
		case FieldMaskFormatURLEncoded:
			fMask.Masks = append(fMask.Masks, NewMask(MaskConfig{
				`(?i)\b` + cfg.Field + `\s*=\s*[^&\s]+`, cfg.Field + "=***"}))
		}
	}
	return fMask
}

// Masker masks secrets in strings.
type Masker struct {
	FieldMasks []FieldMasker
}

// NewMasker creates a Masker for the rules.
func NewMasker(rules []MaskingRuleConfig) *Masker {
	r := &Masker{FieldMasks: make([]FieldMasker, 0, len(rules))}
	for _, rule := range rules {
		r.FieldMasks = append(r.FieldMasks, NewFieldMasker(rule))
	}
	return r
}

// Mask returns s with all matched secrets replaced.
func (r *Masker) Mask(s string) string {
	lower := strings.ToLower(s)
	for _, fieldMask := range r.FieldMasks {
		if !strings.Contains(lower, fieldMask.Field) {
			continue
		}
		for _, rep := range fieldMask.Masks {
			s = rep.RegExp.ReplaceAllString(s, rep.Mask)
		}
	}
	return s
}
