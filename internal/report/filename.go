package report

import (
	"strings"
	"time"
	"unicode"
)

const maxSafeName = 64

// SafeName keeps Unicode letters and digits of name and replaces every other
// run of characters with a single "_".
func SafeName(name string) string {
	var b strings.Builder
	pendingSep := false
	n := 0
	for _, r := range name {
		if n >= maxSafeName {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
				n++
			}
			pendingSep = false
			b.WriteRune(r)
			n++
			continue
		}
		pendingSep = true
	}
	if b.Len() == 0 {
		return "respondent"
	}
	return b.String()
}

// Filename is the archive name of a report:
// YYYY-MM-DD_HH-MM-SS_<safe-name>_<variant>.pdf.
func Filename(t time.Time, name string, v Variant) string {
	return t.Format("2006-01-02_15-04-05") + "_" + SafeName(name) + "_" + string(v) + ".pdf"
}

func workDirPrefix(userID string, t time.Time) string {
	return SafeName(userID) + "-" + t.Format("20060102-150405") + "-"
}
