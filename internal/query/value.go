package query

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// b64Pattern matches the {{b64(...)}} escape; the capture is greedy so a
// payload may itself contain parentheses.
var b64Pattern = regexp.MustCompile(`\{\{b64\((.*)\)\}\}`)

// DecodeValue resolves a raw filter value.
//
// A {{b64(payload)}} escape yields the decoded payload verbatim, which lets
// clients send colons and delimiters. Any other value has every * replaced
// by the storage wildcard %. The result is then checked against the
// reserved keywords null, notnull, today and nottoday.
func DecodeValue(raw string) Value {
	var v Value
	if m := b64Pattern.FindStringSubmatch(raw); m != nil {
		decoded, err := base64.StdEncoding.DecodeString(m[1])
		if err != nil {
			// permissive: an undecodable payload matches nothing useful
			decoded = nil
		}
		v = Value{Text: string(decoded), Encoded: true}
	} else {
		v = Value{Text: strings.ReplaceAll(raw, "*", "%")}
	}

	switch Keyword(v.Text) {
	case KeywordNull, KeywordNotNull, KeywordToday, KeywordNotToday:
		v.Keyword = Keyword(v.Text)
	}
	return v
}

// DecodeText returns only the text of a decoded value without wildcard
// expansion; used for order directions which may also be b64-escaped.
func DecodeText(raw string) string {
	if m := b64Pattern.FindStringSubmatch(raw); m != nil {
		decoded, err := base64.StdEncoding.DecodeString(m[1])
		if err != nil {
			return ""
		}
		return string(decoded)
	}
	return raw
}
