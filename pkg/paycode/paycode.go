// Package paycode generates payment codes and finds them again in bank transfer notes.
package paycode

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length of generated codes. Codes are letters only; banks mask digit runs in transfer notes.
const Length = 6

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// A code is a run of 6 to 8 ASCII capitals. It must also stand alone: any letter (Vietnamese
// included), digit or underscore touching the run disqualifies it, see standalone.
var codePattern = regexp.MustCompile(`[A-Z]{6,8}`)

// Words of that shape that banks and payers routinely put in transfer notes. They are never
// issued as codes and never taken for one.
var reserved = map[string]struct{}{
	"CHUYEN":   {},
	"NOIDUNG":  {},
	"NGUYEN":   {},
	"HOCPHI":   {},
	"KICHHOAT": {},
	"MBBANK":   {},
	"VPBANK":   {},
	"TPBANK":   {},
	"AGRIBANK": {},
	"VIETTIN":  {},
	"ZALOPAY":  {},
	"PAYMENT":  {},
	"TRANSFER": {},
	"BANKING":  {},
	"CUSTOMER": {},
}

func IsReserved(code string) bool {
	_, ok := reserved[code]
	return ok
}

// Generate returns Length random capitals that are not a reserved word. Global uniqueness is the
// job of the payment_request.payment_code unique index.
func Generate() (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	for {
		buf := make([]byte, Length)
		for i := range buf {
			n, err := rand.Int(rand.Reader, limit)
			if err != nil {
				return "", err
			}
			buf[i] = alphabet[n.Int64()]
		}
		if code := string(buf); !IsReserved(code) {
			return code, nil
		}
	}
}

// Extract upper-cases the narrative and returns the first candidate code in scan order.
// Multiple candidates are not disambiguated.
func Extract(narrative string) (string, bool) {
	content := strings.ToUpper(narrative)
	for _, loc := range codePattern.FindAllStringIndex(content, -1) {
		if !standalone(content, loc[0], loc[1]) {
			continue
		}
		candidate := content[loc[0]:loc[1]]
		if IsReserved(candidate) {
			continue
		}
		return candidate, true
	}
	return "", false
}

func standalone(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
