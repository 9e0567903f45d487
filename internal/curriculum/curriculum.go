// Package curriculum defines the read-only course structure consumed from
// course storage when generating a cohort's sessions.
package curriculum

// LessonUnit is a single teachable unit inside a module.
type LessonUnit struct {
	ID    string
	Title string
}

// Module is an ordered group of lesson units within a curriculum.
type Module struct {
	ID      string
	Title   string
	Lessons []LessonUnit
}

// Curriculum is the ordered list of modules a cohort works through.
type Curriculum struct {
	ID      string
	Title   string
	Modules []Module
}
