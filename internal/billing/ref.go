package billing

import "github.com/noah-isme/tutor-center-api/internal/models"

// Ref is a reference to an entity by its human key. It is either resolved to
// the entity or dangling, in which case only the raw key is known.
type Ref[T any] struct {
	raw      string
	value    T
	resolved bool
}

// Resolved builds a reference that points at an existing entity.
func Resolved[T any](raw string, value T) Ref[T] {
	return Ref[T]{raw: raw, value: value, resolved: true}
}

// Dangling builds a reference whose target does not exist.
func Dangling[T any](raw string) Ref[T] {
	return Ref[T]{raw: raw}
}

// RawID is the key the reference was created from.
func (r Ref[T]) RawID() string { return r.raw }

// Get returns the entity and whether the reference resolved.
func (r Ref[T]) Get() (T, bool) { return r.value, r.resolved }

// IsResolved reports whether the target exists.
func (r Ref[T]) IsResolved() bool { return r.resolved }

// Lookup indexes entities by human key. Duplicate keys keep the first record.
type Lookup struct {
	students map[string]models.Student
	teachers map[string]models.Teacher
	courses  map[string]models.Course
}

// NewLookup builds the indexes.
func NewLookup(students []models.Student, teachers []models.Teacher, courses []models.Course) *Lookup {
	l := &Lookup{
		students: make(map[string]models.Student, len(students)),
		teachers: make(map[string]models.Teacher, len(teachers)),
		courses:  make(map[string]models.Course, len(courses)),
	}
	for _, s := range students {
		if _, ok := l.students[s.StudentID]; !ok {
			l.students[s.StudentID] = s
		}
	}
	for _, t := range teachers {
		if _, ok := l.teachers[t.TeacherID]; !ok {
			l.teachers[t.TeacherID] = t
		}
	}
	for _, c := range courses {
		if _, ok := l.courses[c.CourseID]; !ok {
			l.courses[c.CourseID] = c
		}
	}
	return l
}

// Student resolves a student key.
func (l *Lookup) Student(id string) Ref[models.Student] {
	if s, ok := l.students[id]; ok {
		return Resolved(id, s)
	}
	return Dangling[models.Student](id)
}

// Teacher resolves a teacher key.
func (l *Lookup) Teacher(id string) Ref[models.Teacher] {
	if t, ok := l.teachers[id]; ok {
		return Resolved(id, t)
	}
	return Dangling[models.Teacher](id)
}

// Course resolves a course key.
func (l *Lookup) Course(id string) Ref[models.Course] {
	if c, ok := l.courses[id]; ok {
		return Resolved(id, c)
	}
	return Dangling[models.Course](id)
}

// TeacherForCourse follows Course.TeacherID. A dangling course yields a
// dangling teacher with an empty key.
func (l *Lookup) TeacherForCourse(course Ref[models.Course]) Ref[models.Teacher] {
	c, ok := course.Get()
	if !ok {
		return Dangling[models.Teacher]("")
	}
	return l.Teacher(c.TeacherID)
}

// JoinedClass is a class with its references resolved.
type JoinedClass struct {
	Class   models.Class
	Student Ref[models.Student]
	Course  Ref[models.Course]
	Teacher Ref[models.Teacher]
}

// Join resolves the references of every class.
func (l *Lookup) Join(classes []models.Class) []JoinedClass {
	out := make([]JoinedClass, 0, len(classes))
	for _, class := range classes {
		course := l.Course(class.CourseID)
		out = append(out, JoinedClass{
			Class:   class,
			Student: l.Student(class.StudentID),
			Course:  course,
			Teacher: l.TeacherForCourse(course),
		})
	}
	return out
}
