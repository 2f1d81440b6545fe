// Package memory is an in-process implementation of the attendance core
// repositories, used by service and handler tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/calendar"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/staff"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/utils"
)

var ErrNoTransaction = errors.New("lock requested outside a transaction")

// Store holds every table. The zero value is not usable; call NewStore.
type Store struct {
	mu         sync.Mutex
	nextID     int64
	staff      map[string]staff.Staff
	attendance map[string]attendance.Attendance
	calendar   map[string]calendar.CalendarDay
	noCalendar bool
	settings   map[string]string
	locks      map[string]*sync.Mutex

	// FailWrite, when set, is consulted before every attendance write.
	FailWrite func(staffID string, date time.Time) error
}

func NewStore() *Store {
	return &Store{
		staff:      make(map[string]staff.Staff),
		attendance: make(map[string]attendance.Attendance),
		calendar:   make(map[string]calendar.CalendarDay),
		settings:   make(map[string]string),
		locks:      make(map[string]*sync.Mutex),
	}
}

func key(staffID string, date time.Time) string {
	return staffID + "|" + utils.DateKey(date)
}

// AddStaff inserts or replaces a staff row.
func (s *Store) AddStaff(st staff.Staff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[st.ID] = st
}

// AddCalendarDays inserts or replaces calendar rows.
func (s *Store) AddCalendarDays(days ...calendar.CalendarDay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range days {
		s.calendar[utils.DateKey(d.Date)] = d
	}
}

// DropCalendar simulates a database without the calendar seed table.
func (s *Store) DropCalendar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noCalendar = true
	s.calendar = make(map[string]calendar.CalendarDay)
}

// SetSetting stores a raw global setting value.
func (s *Store) SetSetting(k, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[k] = v
}

// PutAttendance stores a record as-is, assigning an ID when missing.
func (s *Store) PutAttendance(a attendance.Attendance) attendance.Attendance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		s.nextID++
		a.ID = s.nextID
	}
	s.attendance[key(a.StaffID, a.Date)] = a.Clone()
	return a
}

// Attendances returns every stored record ordered by date then staff.
func (s *Store) Attendances() []attendance.Attendance {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]attendance.Attendance, 0, len(s.attendance))
	for _, a := range s.attendance {
		list = append(list, a.Clone())
	}
	sortAttendance(list)
	return list
}

func sortAttendance(list []attendance.Attendance) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		return list[i].StaffID < list[j].StaffID
	})
}

func (s *Store) keyLock(k string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[k]
	if !ok {
		l = &sync.Mutex{}
		s.locks[k] = l
	}
	return l
}

// ========================================
// TRANSACTOR
// ========================================

type txKey struct{}

type txState struct {
	mu   sync.Mutex
	held []*sync.Mutex
}

type transactor struct{}

// Transactor scopes LockStaffDay locks to fn. Writes are applied immediately; there is no rollback.
func (s *Store) Transactor() database.Transactor {
	return transactor{}
}

func (transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}
	st := &txState{}
	defer func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		for i := len(st.held) - 1; i >= 0; i-- {
			st.held[i].Unlock()
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, st))
}

// ========================================
// ATTENDANCE REPOSITORY
// ========================================

type attendanceRepo struct{ s *Store }

func (s *Store) Attendance() attendance.AttendanceRepository {
	return attendanceRepo{s: s}
}

func (r attendanceRepo) LockStaffDay(ctx context.Context, staffID string, date time.Time) error {
	st, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		return ErrNoTransaction
	}
	l := r.s.keyLock(key(staffID, date))
	l.Lock()
	st.mu.Lock()
	st.held = append(st.held, l)
	st.mu.Unlock()
	return nil
}

func (r attendanceRepo) GetByStaffAndDate(ctx context.Context, staffID string, date time.Time) (*attendance.Attendance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attendance[key(staffID, date)]
	if !ok {
		return nil, nil
	}
	c := a.Clone()
	return &c, nil
}

func (r attendanceRepo) Create(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	if r.s.FailWrite != nil {
		if err := r.s.FailWrite(a.StaffID, a.Date); err != nil {
			return attendance.Attendance{}, err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key(a.StaffID, a.Date)
	if _, exists := r.s.attendance[k]; exists {
		return attendance.Attendance{}, attendance.ErrCheckInExists
	}
	r.s.nextID++
	a.ID = r.s.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.s.attendance[k] = a.Clone()
	return a, nil
}

func (r attendanceRepo) Update(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	if r.s.FailWrite != nil {
		if err := r.s.FailWrite(a.StaffID, a.Date); err != nil {
			return attendance.Attendance{}, err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key(a.StaffID, a.Date)
	existing, ok := r.s.attendance[k]
	if !ok || existing.ID != a.ID {
		return attendance.Attendance{}, fmt.Errorf("attendance %d not found", a.ID)
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now()
	r.s.attendance[k] = a.Clone()
	return a, nil
}

func (r attendanceRepo) ListByDateRange(ctx context.Context, start, end time.Time, staffID *string) ([]attendance.Attendance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	from, to := utils.DateKey(start), utils.DateKey(end)
	var list []attendance.Attendance
	for _, a := range r.s.attendance {
		d := utils.DateKey(a.Date)
		if d < from || d > to {
			continue
		}
		if staffID != nil && a.StaffID != *staffID {
			continue
		}
		c := a.Clone()
		if st, ok := r.s.staff[a.StaffID]; ok {
			name := st.FullName
			c.StaffName = &name
			c.Department = st.Department
		}
		list = append(list, c)
	}
	sortAttendance(list)
	return list, nil
}

// ========================================
// STAFF REPOSITORY
// ========================================

type staffRepo struct{ s *Store }

func (s *Store) Staff() staff.StaffRepository {
	return staffRepo{s: s}
}

func (r staffRepo) GetByID(ctx context.Context, staffID string) (staff.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.staff[staffID]
	if !ok {
		return staff.Staff{}, staff.ErrStaffNotFound
	}
	return st, nil
}

func (r staffRepo) ListActive(ctx context.Context) ([]staff.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var list []staff.Staff
	for _, st := range r.s.staff {
		if st.IsActive {
			list = append(list, st)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r staffRepo) GetMany(ctx context.Context, staffIDs []string) (map[string]staff.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make(map[string]staff.Staff, len(staffIDs))
	for _, id := range staffIDs {
		if st, ok := r.s.staff[id]; ok {
			result[id] = st
		}
	}
	return result, nil
}

// ========================================
// CALENDAR REPOSITORY
// ========================================

type calendarRepo struct{ s *Store }

func (s *Store) Calendar() calendar.CalendarRepository {
	return calendarRepo{s: s}
}

func (r calendarRepo) TableExists(ctx context.Context) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return !r.s.noCalendar, nil
}

func (r calendarRepo) ListByRange(ctx context.Context, start, end time.Time) ([]calendar.CalendarDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.noCalendar {
		return nil, calendar.ErrCalendarNotConfigured
	}
	from, to := utils.DateKey(start), utils.DateKey(end)
	var days []calendar.CalendarDay
	for k, d := range r.s.calendar {
		if k >= from && k <= to {
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

// ========================================
// SETTINGS REPOSITORY
// ========================================

type settingsRepo struct{ s *Store }

func (s *Store) Settings() settings.SettingsRepository {
	return settingsRepo{s: s}
}

func (r settingsRepo) GetInt(ctx context.Context, k string, fallback int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.settings[k]
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, nil
	}
	return n, nil
}
