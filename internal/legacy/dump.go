package legacy

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Dump is the denormalised JSON snapshot of the legacy store, keyed by
// collection name.
type Dump struct {
	ExportedAt      time.Time       `json:"exportedAt"`
	Database        string          `json:"database"`
	Students        []Student       `json:"students"`
	Teachers        []Teacher       `json:"teachers"`
	Courses         []Course        `json:"courses"`
	Classes         []Class         `json:"classes"`
	StudentStatuses []StudentStatus `json:"studentbillingstatuses"`
	TeacherStatuses []TeacherStatus `json:"teacherbillingstatuses"`
	Users           []User          `json:"users"`
}

// Counts reports how many documents each collection holds.
func (d *Dump) Counts() map[string]int {
	return map[string]int{
		CollectionStudents:        len(d.Students),
		CollectionTeachers:        len(d.Teachers),
		CollectionCourses:         len(d.Courses),
		CollectionClasses:         len(d.Classes),
		CollectionStudentStatuses: len(d.StudentStatuses),
		CollectionTeacherStatuses: len(d.TeacherStatuses),
		CollectionUsers:           len(d.Users),
	}
}

// WriteDump encodes the dump as indented JSON.
func WriteDump(w io.Writer, dump *Dump) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	return nil
}

// ReadDump decodes a dump written by WriteDump.
func ReadDump(r io.Reader) (*Dump, error) {
	var dump Dump
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	return &dump, nil
}
