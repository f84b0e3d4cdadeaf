package school

// The analytics core reads school data through these contracts; it never
// owns persistence. A scope identifies the tenant (one school). An empty
// period selects all periods.
//
// GradeSource implementations must yield records in stable insertion
// order: the grade trend feature is a regression over positional index,
// so insertion order is assumed to approximate chronological order.
type GradeSource interface {
	FetchGrades(scope, period string) ([]GradeRecord, error)
}

type AttendanceSource interface {
	FetchAttendance(scope, period string) ([]AttendanceRecord, error)
}

type StudentSource interface {
	FetchStudents(scope string) ([]Student, error)
}

// Source bundles the three read contracts a full pipeline needs.
type Source interface {
	StudentSource
	GradeSource
	AttendanceSource
}
