package kardex

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PeriodInfo is the result of decoding a compact 4-digit period code (CIC)
type PeriodInfo struct {
	Year  int
	Cycle int
	Label string
}

// DecodePeriodCode decodes a 4-digit period code "YYCD" into a period:
// year = 2000 + YY, cycle = the digit at index 3. The digit at index 2 is
// a sub-code the transcript source does not populate consistently; it is
// validated as a digit but otherwise ignored.
func DecodePeriodCode(code string) (PeriodInfo, error) {
	if len(code) != 4 {
		return PeriodInfo{}, &MalformedCodeError{Code: code}
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return PeriodInfo{}, &MalformedCodeError{Code: code}
		}
	}

	yearOffset, _ := strconv.Atoi(code[:2])
	cycle := int(code[3] - '0')
	year := 2000 + yearOffset

	return PeriodInfo{
		Year:  year,
		Cycle: cycle,
		Label: strconv.Itoa(year) + "-" + strconv.Itoa(cycle),
	}, nil
}

// DecodeGrade turns a raw textual grade code (ORD) into a numeric grade
// and a status label. Empty input means the course is not graded yet; an
// "ACRED" marker means credited without a score; an integer is an ordinary
// score; anything else becomes a free-form uppercase status.
func DecodeGrade(raw string) (grade *int, status string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, GradeStatusUngraded
	}
	if strings.Contains(strings.ToUpper(trimmed), "ACRED") {
		return nil, GradeStatusCredited
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return &n, GradeStatusOrdinary
	}
	return nil, strings.ToUpper(trimmed)
}

// SplitFullName splits a raw full name into given name plus paternal and
// maternal surnames. The input is NFC-normalized and internal whitespace
// is collapsed. The last two tokens are taken as the surnames; everything
// before them is the given name. Composite surnames are mis-split by this
// rule; that is an accepted limitation of the transcript source, which
// does not separate name parts.
func SplitFullName(raw string) (given, paternal, maternal string) {
	normalized := norm.NFC.String(raw)
	tokens := strings.Fields(normalized)

	if len(tokens) < 2 {
		return strings.TrimSpace(normalized), "", ""
	}

	maternal = tokens[len(tokens)-1]
	paternal = tokens[len(tokens)-2]
	given = strings.Join(tokens[:len(tokens)-2], " ")
	return given, paternal, maternal
}
