// Package storage provides persistent record storage for the student
// personalizer. It uses BoltDB as the underlying storage engine to store
// students, grades, and attendance records per school.
//
// Each top-level bucket holds one nested bucket per school, so scope
// isolation never depends on key encoding and school names may contain
// any byte. Grade and attendance keys are per-school sequence numbers,
// so cursor scans return records in insertion order. The feature
// pipeline depends on that ordering for its trend computation.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/MrFaiman/student-personalizer/internal/school"
)

const (
	studentsBucket   = "students"   // Bucket for student master records
	gradesBucket     = "grades"     // Bucket for per-subject grade records
	attendanceBucket = "attendance" // Bucket for attendance/behavior records
)

// Store provides persistent storage for school records using BoltDB.
// It implements the school.Source contracts consumed by the ML pipeline.
type Store struct {
	db *bbolt.DB
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates necessary buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "personalizer-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{studentsBucket, gradesBucket, attendanceBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutStudent upserts a student master record, keyed by TZ within the
// school's bucket.
func (s *Store) PutStudent(scope string, st school.Student) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := scopeBucket(tx, studentsBucket, scope)
		if err != nil {
			return err
		}

		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal student: %w", err)
		}
		return b.Put([]byte(st.TZ), data)
	})
}

// PutGrade appends a grade record. The key is the school bucket's
// sequence number so scans replay records in the order they were written.
func (s *Store) PutGrade(scope string, g school.GradeRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := scopeBucket(tx, gradesBucket, scope)
		if err != nil {
			return err
		}

		data, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("marshal grade: %w", err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("grade sequence: %w", err)
		}
		return b.Put(seqKey(seq), data)
	})
}

// PutAttendance appends an attendance record, sequence-keyed like grades.
func (s *Store) PutAttendance(scope string, a school.AttendanceRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := scopeBucket(tx, attendanceBucket, scope)
		if err != nil {
			return err
		}

		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal attendance: %w", err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("attendance sequence: %w", err)
		}
		return b.Put(seqKey(seq), data)
	})
}

// FetchStudents returns all students for a school.
func (s *Store) FetchStudents(scope string) ([]school.Student, error) {
	var students []school.Student
	err := s.scanScope(studentsBucket, scope, func(v []byte) error {
		var st school.Student
		if err := json.Unmarshal(v, &st); err != nil {
			return err
		}
		students = append(students, st)
		return nil
	})
	return students, err
}

// FetchGrades returns grade records for a school in insertion order,
// optionally filtered to one period.
func (s *Store) FetchGrades(scope, period string) ([]school.GradeRecord, error) {
	var grades []school.GradeRecord
	err := s.scanScope(gradesBucket, scope, func(v []byte) error {
		var g school.GradeRecord
		if err := json.Unmarshal(v, &g); err != nil {
			return err
		}
		if period == "" || g.Period == period {
			grades = append(grades, g)
		}
		return nil
	})
	return grades, err
}

// FetchAttendance returns attendance records for a school, optionally
// filtered to one period.
func (s *Store) FetchAttendance(scope, period string) ([]school.AttendanceRecord, error) {
	var records []school.AttendanceRecord
	err := s.scanScope(attendanceBucket, scope, func(v []byte) error {
		var a school.AttendanceRecord
		if err := json.Unmarshal(v, &a); err != nil {
			return err
		}
		if period == "" || a.Period == period {
			records = append(records, a)
		}
		return nil
	})
	return records, err
}

// scopeBucket returns the school's nested bucket, creating it on first
// write.
func scopeBucket(tx *bbolt.Tx, bucketName, scope string) (*bbolt.Bucket, error) {
	b, err := tx.Bucket([]byte(bucketName)).CreateBucketIfNotExists([]byte(scope))
	if err != nil {
		return nil, fmt.Errorf("create scope bucket %s/%s: %w", bucketName, scope, err)
	}
	return b, nil
}

func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%016d", seq))
}

// scanScope walks the school's nested bucket in key order, invoking fn
// for each value. A school with no records yields nothing.
func (s *Store) scanScope(bucketName, scope string, fn func([]byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName)).Bucket([]byte(scope))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			return fn(v)
		})
	})
}
