package model

// TeacherSession pairs a teacher code with the student code handed out to
// listeners. Timestamps are epoch seconds, matching the wire format the
// frontend expects.
type TeacherSession struct {
	TeacherCode  string  `gorm:"primaryKey;size:16" json:"teacher_code"`
	StudentCode  string  `gorm:"uniqueIndex;size:16" json:"student_code"`
	Created      float64 `gorm:"column:created_at" json:"created_at"`
	LastAccessed float64 `gorm:"column:last_accessed;index" json:"last_accessed"`
}

func (TeacherSession) TableName() string {
	return "teacher_sessions"
}

// StudentSession is one listener's membership in a classroom. The teacher
// code is denormalized for fast lookup; many student clients may share one
// student code.
type StudentSession struct {
	StudentCode  string  `gorm:"primaryKey;size:16" json:"student_code"`
	TeacherCode  string  `gorm:"size:16;index" json:"teacher_code"`
	Created      float64 `gorm:"column:created_at" json:"created_at"`
	LastAccessed float64 `gorm:"column:last_accessed" json:"last_accessed"`
}

func (StudentSession) TableName() string {
	return "student_sessions"
}
