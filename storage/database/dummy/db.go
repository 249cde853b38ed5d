package dummydb

import (
	"sync"

	"github.com/copalsoft/copalschool/core/notification"
	"github.com/copalsoft/copalschool/core/school"
	"github.com/copalsoft/copalschool/core/student"
	"github.com/copalsoft/copalschool/core/user"
)

// DB is an in-memory stand-in for the real database, used by tests and local
// tinkering. Soft deletes behave like the SQL layer: rows are stamped, never
// removed, and reads filter them out.
type (
	DB struct {
		user         *table
		resetCode    *table
		school       *table
		class        *table
		subject      *table
		slot         *table
		student      *table
		teacher      *table
		grade        *table
		attendance   *table
		payment      *table
		notification *table
	}

	table struct {
		sync.RWMutex
		pkCount int
		rows    map[int]interface{}
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         newTable(),
		resetCode:    newTable(),
		school:       newTable(),
		class:        newTable(),
		subject:      newTable(),
		slot:         newTable(),
		student:      newTable(),
		teacher:      newTable(),
		grade:        newTable(),
		attendance:   newTable(),
		payment:      newTable(),
		notification: newTable(),
	}
	return db, nil
}

func newTable() *table {
	return &table{rows: make(map[int]interface{})}
}

func (t *table) nextPK() int {
	t.pkCount++
	return t.pkCount
}

// compile-time interface checks
var (
	_ user.Repository         = (*userRepository)(nil)
	_ school.Repository       = (*schoolRepository)(nil)
	_ student.Repository      = (*studentRepository)(nil)
	_ notification.Repository = (*notificationRepository)(nil)
)
