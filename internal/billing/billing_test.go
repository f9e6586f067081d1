package billing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

func date(y int, m time.Month, d int) models.Date {
	return models.NewDate(y, m, d)
}

func fixtureLookup() *Lookup {
	students := []models.Student{
		{StudentID: "S1", NameZh: "王小明", Grade: "G7"},
		{StudentID: "S2", NameEn: "Amy", Grade: "G8"},
		{StudentID: "S1", NameZh: "duplicate"},
	}
	teachers := []models.Teacher{
		{TeacherID: "T1", Name: "Lin"},
		{TeacherID: "T2", Name: "Chen"},
	}
	courses := []models.Course{
		{CourseID: "C1", TeacherID: "T2", Grade: "G7", Subject: "Math"},
		{CourseID: "C3", TeacherID: "T1", Grade: "G8", Subject: "English"},
		{CourseID: "C5", TeacherID: "T2", Grade: "G7", Subject: "Science"},
		{CourseID: "C9", TeacherID: "T404", Grade: "G9", Subject: "History"},
	}
	return NewLookup(students, teachers, courses)
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2025-07")
	require.NoError(t, err)
	assert.Equal(t, Month{Year: 2025, Month: time.July}, m)
	assert.Equal(t, "2025-07", m.String())

	for _, raw := range []string{"", "2025", "2025-13", "25-07", "2025-0a"} {
		_, err := ParseMonth(raw)
		assert.Error(t, err, raw)
	}
}

func TestLookupFirstDuplicateWins(t *testing.T) {
	s, ok := fixtureLookup().Student("S1").Get()
	require.True(t, ok)
	assert.Equal(t, "王小明", s.NameZh)

	ref := fixtureLookup().Student("S404")
	assert.False(t, ref.IsResolved())
	assert.Equal(t, "S404", ref.RawID())
}

func TestAggregateByStudentFiltersMonth(t *testing.T) {
	classes := []models.Class{
		{CourseID: "C1", StudentID: "S1", Date: date(2025, time.July, 3), Price: 100},
		{CourseID: "C1", StudentID: "S1", Date: date(2025, time.July, 10), Price: 200},
		{CourseID: "C1", StudentID: "S1", Date: date(2025, time.June, 28), Price: 50},
	}
	rows := AggregateByStudent(classes, Month{2025, time.July}, fixtureLookup(), nil)

	require.Len(t, rows, 1)
	assert.Equal(t, "S1", rows[0].StudentID)
	assert.Equal(t, 300.0, rows[0].TotalAmount)
	assert.Equal(t, 2, rows[0].ClassCount)
	assert.Equal(t, models.PaymentStatusUnpaid, rows[0].PaymentStatus)
	assert.Equal(t, models.StatementStatusPending, rows[0].StatementStatus)
	assert.Equal(t, models.PaymentMethodNone, rows[0].PaymentMethod)
}

func TestAggregateByStudentMergesStatusAndKeepsFirstAppearanceOrder(t *testing.T) {
	classes := []models.Class{
		{CourseID: "C3", StudentID: "S2", Date: date(2025, time.July, 1), Price: 80},
		{CourseID: "C1", StudentID: "S1", Date: date(2025, time.July, 2), Price: 120},
		{CourseID: "C1", StudentID: "S404", Date: date(2025, time.July, 2), Price: 10},
	}
	old := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	statuses := []models.StudentBillingStatus{
		{StudentID: "S1", Month: "2025-07", PaymentStatus: "已繳交", PaymentMethod: "cash", Notes: "old", UpdatedAt: old},
		{StudentID: "S1", Month: "2025-07", PaymentStatus: "已繳交", PaymentMethod: "transfer", Notes: "new", UpdatedAt: old.Add(time.Hour)},
		{StudentID: "S2", Month: "2025-06", PaymentStatus: "已繳交"},
	}
	rows := AggregateByStudent(classes, Month{2025, time.July}, fixtureLookup(), statuses)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"S2", "S1", "S404"}, []string{rows[0].StudentID, rows[1].StudentID, rows[2].StudentID})
	assert.Equal(t, models.PaymentStatusUnpaid, rows[0].PaymentStatus)
	assert.Equal(t, "Amy", rows[0].StudentName)
	assert.Equal(t, "transfer", rows[1].PaymentMethod)
	assert.Equal(t, "new", rows[1].Notes)
	assert.Equal(t, models.StatementStatusPending, rows[1].StatementStatus)
	assert.False(t, rows[2].Resolved)
	assert.Empty(t, rows[2].StudentName)
}

func TestAggregateTotalsAgreeAcrossVariants(t *testing.T) {
	classes := []models.Class{
		{CourseID: "C1", StudentID: "S1", Date: date(2025, time.July, 1), Price: 100},
		{CourseID: "C3", StudentID: "S1", Date: date(2025, time.July, 2), Price: 250.5},
		{CourseID: "C5", StudentID: "S2", Date: date(2025, time.July, 3), Price: 75},
		{CourseID: "C9", StudentID: "S2", Date: date(2025, time.July, 4), Price: 30},
		{CourseID: "C404", StudentID: "S2", Date: date(2025, time.July, 5), Price: 20},
		{CourseID: "C1", StudentID: "S2", Date: date(2025, time.August, 1), Price: 999},
	}
	month := Month{2025, time.July}
	lookup := fixtureLookup()

	students := AggregateByStudent(classes, month, lookup, nil)
	teachers := AggregateByTeacher(classes, month, lookup, nil)

	assert.InDelta(t, 475.5, SumStudentRows(students), 1e-9)
	assert.InDelta(t, SumStudentRows(students), SumTeacherRows(teachers), 1e-9)

	keys := make([]string, 0, len(teachers))
	for _, row := range teachers {
		keys = append(keys, row.TeacherID)
	}
	assert.Equal(t, []string{"T2", "T1", "T404", ""}, keys)
	assert.Equal(t, 175.0, teachers[0].TotalAmount)
	assert.False(t, teachers[2].Resolved)
}

func TestAggregateByTeacherGroupsUnassignedClasses(t *testing.T) {
	lookup := NewLookup(nil, []models.Teacher{{TeacherID: "T1", Name: "Lin"}}, []models.Course{
		{CourseID: "C1", TeacherID: "T1"},
		{CourseID: "C2", TeacherID: ""},
	})
	classes := []models.Class{
		{CourseID: "C1", Date: date(2025, time.July, 1), Price: 100},
		{CourseID: "C2", Date: date(2025, time.July, 2), Price: 40},
		{CourseID: "C404", Date: date(2025, time.July, 3), Price: 60},
	}
	statuses := []models.TeacherBillingStatus{
		{TeacherID: "", Month: "2025-07", IsVerified: true, IsPaid: true, Notes: "stray"},
	}

	rows := AggregateByTeacher(classes, Month{2025, time.July}, lookup, statuses)

	require.Len(t, rows, 2)
	unassigned := rows[1]
	assert.Equal(t, UnassignedTeacherKey, unassigned.TeacherID)
	assert.False(t, unassigned.Resolved)
	assert.Equal(t, 2, unassigned.ClassCount)
	assert.Equal(t, 100.0, unassigned.TotalAmount)
	assert.False(t, unassigned.IsVerified)
	assert.False(t, unassigned.IsPaid)
	assert.Empty(t, unassigned.Notes)
}

func TestAggregateIsDeterministic(t *testing.T) {
	classes := []models.Class{
		{CourseID: "C1", StudentID: "S1", Date: date(2025, time.July, 1), Price: 100},
		{CourseID: "C3", StudentID: "S2", Date: date(2025, time.July, 2), Price: 50},
		{CourseID: "C5", StudentID: "S1", Date: date(2025, time.July, 3), Price: 25},
	}
	statuses := []models.TeacherBillingStatus{{TeacherID: "T2", Month: "2025-07", IsVerified: true}}
	month := Month{2025, time.July}

	first := AggregateByTeacher(classes, month, fixtureLookup(), statuses)
	second := AggregateByTeacher(classes, month, fixtureLookup(), statuses)
	assert.Equal(t, first, second)
	assert.True(t, first[0].IsVerified)
	assert.Equal(t, AggregateByStudent(classes, month, fixtureLookup(), nil), AggregateByStudent(classes, month, fixtureLookup(), nil))
}

func TestSortStatementLinesByTeacherThenCourse(t *testing.T) {
	lookup := fixtureLookup()
	lines := lookup.Join([]models.Class{
		{ID: "a", CourseID: "C5", Date: date(2025, time.July, 1)},
		{ID: "b", CourseID: "C3", Date: date(2025, time.July, 1)},
		{ID: "c", CourseID: "C1", Date: date(2025, time.July, 1)},
	})
	SortStatementLines(lines)

	assert.Equal(t, []string{"b", "c", "a"}, ids(lines))
}

func TestSortStatementLinesUnresolvedTeacherLast(t *testing.T) {
	lookup := NewLookup(nil,
		[]models.Teacher{{TeacherID: "T9", Name: "Resolved"}},
		[]models.Course{
			{CourseID: "C1", TeacherID: "T1"},
			{CourseID: "C2", TeacherID: "T9"},
		})
	lines := lookup.Join([]models.Class{
		{ID: "dangling-course", CourseID: "C0", Date: date(2025, time.July, 9)},
		{ID: "dangling-teacher", CourseID: "C1", Date: date(2025, time.July, 9)},
		{ID: "resolved", CourseID: "C2", Date: date(2025, time.July, 1)},
	})
	SortStatementLines(lines)

	assert.Equal(t, "resolved", lines[0].Class.ID)
}

func TestSortStatementLinesDateDescendingAndStable(t *testing.T) {
	lookup := fixtureLookup()
	lines := lookup.Join([]models.Class{
		{ID: "early", CourseID: "C1", Date: date(2025, time.July, 1)},
		{ID: "late", CourseID: "C1", Date: date(2025, time.July, 20)},
		{ID: "same-1", CourseID: "C1", Date: date(2025, time.July, 10)},
		{ID: "same-2", CourseID: "C1", Date: date(2025, time.July, 10)},
	})
	SortStatementLines(lines)

	assert.Equal(t, []string{"late", "same-1", "same-2", "early"}, ids(lines))
}

func TestCompareKeys(t *testing.T) {
	assert.Equal(t, -1, CompareKeys("T2", "T10"))
	assert.Equal(t, 0, CompareKeys("T02", "2"))
	assert.Equal(t, -1, CompareKeys("T99", "abc"))
	assert.Equal(t, -1, CompareKeys("abc", "abd"))
}

func TestCompareKeysUsesLeadingDigitRun(t *testing.T) {
	assert.Equal(t, -1, CompareKeys("T1-10", "T2"))
	assert.Equal(t, 1, CompareKeys("T2", "T1-10"))
	assert.Equal(t, 0, CompareKeys("T1-10", "T1-99"))

	long := "T123456789012345678901"
	assert.Equal(t, -1, CompareKeys("T5", long))
	assert.Equal(t, 1, CompareKeys(long, "T99999999999999999999"))
	assert.Equal(t, -1, CompareKeys(long, "abc"))
	assert.Equal(t, 0, CompareKeys("T000", "0"))

	n, ok := NumericID("T1-10")
	assert.True(t, ok)
	assert.Equal(t, int64(1), n)

	_, ok = NumericID(long)
	assert.False(t, ok)
	_, ok = NumericID("abc")
	assert.False(t, ok)
}

func TestStatementTotalTruncatesAndIgnoresNaN(t *testing.T) {
	lines := []JoinedClass{
		{Class: models.Class{Price: 100.9}},
		{Class: models.Class{Price: 49.5}},
		{Class: models.Class{Price: math.NaN()}},
		{Class: models.Class{Price: math.Inf(1)}},
	}
	assert.Equal(t, int64(149), StatementTotal(lines))
}

func TestGroupStudentStatementsSkipsOtherMonths(t *testing.T) {
	classes := []models.Class{
		{ID: "1", CourseID: "C1", StudentID: "S1", Date: date(2025, time.July, 1)},
		{ID: "2", CourseID: "C1", StudentID: "S2", Date: date(2025, time.June, 1)},
		{ID: "3", CourseID: "C3", StudentID: "S1", Date: date(2025, time.July, 5)},
	}
	groups := GroupStudentStatements(classes, Month{2025, time.July}, fixtureLookup())

	require.Len(t, groups, 1)
	assert.Equal(t, "S1", groups[0].GroupID)
	assert.Equal(t, "王小明", groups[0].Name)
	assert.Equal(t, []string{"3", "1"}, ids(groups[0].Lines))
}

func TestStatementFilename(t *testing.T) {
	assert.Equal(t, "2025_07_S1_王小明.pdf", StatementFilename(Month{2025, time.July}, "S1", "王小明"))
	assert.Equal(t, "2025_01_T_1_unknown.pdf", StatementFilename(Month{2025, time.January}, "T/1", ""))
}

func TestBucketRevenue(t *testing.T) {
	lookup := fixtureLookup()
	classes := []models.Class{
		{CourseID: "C1", Date: date(2025, time.March, 1), Price: 100},
		{CourseID: "C3", Date: date(2025, time.January, 1), Price: 300},
		{CourseID: "C5", Date: date(2025, time.February, 1), Price: 50},
		{CourseID: "C404", Date: date(2025, time.February, 2), Price: 5},
		{CourseID: "C1", Date: date(2024, time.December, 1), Price: 1000},
	}
	rev := BucketRevenue(classes, lookup, RevenueFilter{Year: 2025})

	assert.Equal(t, 455.0, rev.GrandTotal)
	assert.Equal(t, 4, rev.ClassCount)
	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, keys(rev.ByMonth))
	assert.Equal(t, []string{"C3", "C1", "C5", "C404"}, keys(rev.ByCourse))
	assert.Equal(t, []string{"T2", "T1", ""}, keys(rev.ByTeacher))
	assert.Equal(t, []string{"G7", "G8", ""}, keys(rev.ByGrade))

	filtered := BucketRevenue(classes, lookup, RevenueFilter{Year: 2025, Months: []time.Month{time.February}})
	assert.Equal(t, 55.0, filtered.GrandTotal)
}

func TestBucketRevenueCapsCourses(t *testing.T) {
	courses := make([]models.Course, 0, 10)
	classes := make([]models.Class, 0, 10)
	for i := 1; i <= 10; i++ {
		id := "C" + string(rune('0'+i%10))
		if i == 10 {
			id = "C10"
		}
		courses = append(courses, models.Course{CourseID: id, TeacherID: "T1"})
		classes = append(classes, models.Class{CourseID: id, Date: date(2025, time.May, 1), Price: float64(i)})
	}
	rev := BucketRevenue(classes, NewLookup(nil, []models.Teacher{{TeacherID: "T1"}}, courses), RevenueFilter{})

	require.Len(t, rev.ByCourse, TopCourses)
	assert.Equal(t, "C10", rev.ByCourse[0].Key)
	assert.Equal(t, 55.0, rev.GrandTotal)
}

func ids(lines []JoinedClass) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Class.ID)
	}
	return out
}

func keys(buckets []Bucket) []string {
	out := make([]string, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.Key)
	}
	return out
}
