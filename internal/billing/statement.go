package billing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

// StatementGroup is the set of classes that make up one party's statement.
type StatementGroup struct {
	GroupID string
	Name    string
	Lines   []JoinedClass
}

// GroupStudentStatements splits the month's classes per student in order of
// first appearance. Each group's lines are already sorted.
func GroupStudentStatements(classes []models.Class, month Month, lookup *Lookup) []StatementGroup {
	return groupStatements(lookup.Join(FilterMonth(classes, month)), func(j JoinedClass) (string, string) {
		name := ""
		if s, ok := j.Student.Get(); ok {
			name = s.DisplayName()
		}
		return j.Student.RawID(), name
	})
}

// GroupTeacherStatements splits the month's classes per resolved-or-raw teacher.
func GroupTeacherStatements(classes []models.Class, month Month, lookup *Lookup) []StatementGroup {
	return groupStatements(lookup.Join(FilterMonth(classes, month)), func(j JoinedClass) (string, string) {
		name := ""
		if t, ok := j.Teacher.Get(); ok {
			name = t.Name
		}
		return j.Teacher.RawID(), name
	})
}

func groupStatements(joined []JoinedClass, key func(JoinedClass) (string, string)) []StatementGroup {
	index := make(map[string]int)
	groups := make([]StatementGroup, 0)
	for _, j := range joined {
		id, name := key(j)
		pos, ok := index[id]
		if !ok {
			pos = len(groups)
			index[id] = pos
			groups = append(groups, StatementGroup{GroupID: id, Name: name})
		}
		groups[pos].Lines = append(groups[pos].Lines, j)
	}
	for i := range groups {
		SortStatementLines(groups[i].Lines)
	}
	return groups
}

// SortStatementLines orders lines by teacher, then course, then most recent
// date first. Unresolved references sort after resolved ones. The sort is
// stable.
func SortStatementLines(lines []JoinedClass) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if c := compareRef(a.Teacher.IsResolved(), a.Teacher.RawID(), b.Teacher.IsResolved(), b.Teacher.RawID()); c != 0 {
			return c < 0
		}
		if c := compareRef(a.Course.IsResolved(), a.Course.RawID(), b.Course.IsResolved(), b.Course.RawID()); c != 0 {
			return c < 0
		}
		return a.Class.Date.After(b.Class.Date.Time)
	})
}

func compareRef(aResolved bool, aID string, bResolved bool, bID string) int {
	if aResolved != bResolved {
		if aResolved {
			return -1
		}
		return 1
	}
	return CompareKeys(aID, bID)
}

// CompareKeys orders human keys by their leading run of digits, so "T1-10"
// sorts with 1 rather than 110. Runs of any length compare numerically.
// Keys without digits come after numeric ones and compare lexicographically.
func CompareKeys(a, b string) int {
	ad, aok := leadingDigits(a)
	bd, bok := leadingDigits(b)
	switch {
	case aok && bok:
		if len(ad) != len(bd) {
			if len(ad) < len(bd) {
				return -1
			}
			return 1
		}
		return strings.Compare(ad, bd)
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(a, b)
}

// NumericID parses the first run of digits in a key such as "T012". It
// reports false when the key has no digits or the run overflows int64.
func NumericID(key string) (int64, bool) {
	digits, ok := leadingDigits(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// leadingDigits returns the first contiguous digit run of key without its
// leading zeros ("0" for an all-zero run).
func leadingDigits(key string) (string, bool) {
	start := strings.IndexFunc(key, isDigit)
	if start < 0 {
		return "", false
	}
	run := key[start:]
	if end := strings.IndexFunc(run, func(r rune) bool { return !isDigit(r) }); end >= 0 {
		run = run[:end]
	}
	run = strings.TrimLeft(run, "0")
	if run == "" {
		run = "0"
	}
	return run, true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// LineAmount truncates a price to whole currency units.
func LineAmount(price float64) int64 {
	return int64(math.Trunc(Price(price)))
}

// StatementTotal sums the truncated prices of the lines.
func StatementTotal(lines []JoinedClass) int64 {
	var total int64
	for _, line := range lines {
		total += LineAmount(line.Class.Price)
	}
	return total
}

// StatementFilename builds <YYYY>_<MM>_<groupID>_<name>.pdf.
func StatementFilename(month Month, groupID, name string) string {
	if strings.TrimSpace(name) == "" {
		name = "unknown"
	}
	if strings.TrimSpace(groupID) == "" {
		groupID = "unknown"
	}
	return fmt.Sprintf("%04d_%02d_%s_%s.pdf", month.Year, int(month.Month), sanitize(groupID), sanitize(name))
}

func sanitize(part string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(`/\:*?"<>|`, r) || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(part))
}
