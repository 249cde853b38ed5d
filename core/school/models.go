package school

import (
	"github.com/copalsoft/copalschool/core"
)

// School kinds
const (
	KindPublic  = "public"
	KindPrivate = "private"
)

// Class levels, primary-school cycle order.
var Levels = []string{"SIL", "CP", "CE1", "CE2", "CM1", "CM2"}

// Weekdays a schedule slot may land on.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

type School struct {
	core.Lifecycle
	Name       string `db:"name" json:"name"`
	Address    string `db:"address" json:"address"`
	Kind       string `db:"kind" json:"kind"`
	ClassCount int    `db:"class_count" json:"class_count"`
}

// Class belongs to one School; (school, level, section) is unique among
// active classes.
type Class struct {
	core.Lifecycle
	SchoolID int    `db:"school_id" json:"school_id"`
	Level    string `db:"level" json:"level"`
	Section  string `db:"section" json:"section"`
	Capacity int    `db:"capacity" json:"capacity"`
}

func (c Class) Label() string {
	if c.Section == "" {
		return c.Level
	}
	return c.Level + " " + c.Section
}

// Subject belongs to one Class; name is unique within the class.
type Subject struct {
	core.Lifecycle
	ClassID     int    `db:"class_id" json:"class_id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

// ScheduleSlot is one entry of a class timetable.
type ScheduleSlot struct {
	core.Lifecycle
	ClassID int    `db:"class_id" json:"class_id"`
	Weekday string `db:"weekday" json:"weekday"`
	Hour    string `db:"hour" json:"hour"` // HH:MM
	Room    string `db:"room" json:"room"`
}

type NewSchool struct {
	Name       string `json:"name" validate:"required"`
	Address    string `json:"address" validate:"required"`
	Kind       string `json:"kind" validate:"required,oneof=public private"`
	ClassCount int    `json:"class_count" validate:"omitempty,min=1"`
}

func (ns *NewSchool) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Address = core.CleanString(ns.Address)
	ns.Kind = core.CleanString(ns.Kind, true /* lower */)
	return core.Validate.Struct(ns)
}

type UpdateSchool struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Kind       string `json:"kind" validate:"omitempty,oneof=public private"`
	ClassCount int    `json:"class_count" validate:"omitempty,min=1"`
}

func (us *UpdateSchool) Validate() error {
	us.Name = core.CleanString(us.Name)
	us.Address = core.CleanString(us.Address)
	us.Kind = core.CleanString(us.Kind, true /* lower */)
	return core.Validate.Struct(us)
}

type NewClass struct {
	SchoolID int    `json:"school_id" validate:"required"`
	Level    string `json:"level" validate:"required,oneof=SIL CP CE1 CE2 CM1 CM2"`
	Section  string `json:"section"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1"`
}

func (nc *NewClass) Validate(svc Service) error {
	nc.Level = core.CleanString(nc.Level, true)
	nc.Level = upperLevel(nc.Level)
	nc.Section = core.CleanString(nc.Section)
	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckClassUniqueness(nc.SchoolID, nc.Level, nc.Section)
}

type UpdateClass struct {
	Level    string `json:"level" validate:"omitempty,oneof=SIL CP CE1 CE2 CM1 CM2"`
	Section  string `json:"section"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1"`
}

func (uc *UpdateClass) Validate(cls Class, svc Service) error {
	uc.Level = upperLevel(core.CleanString(uc.Level, true))
	uc.Section = core.CleanString(uc.Section)
	if err := core.Validate.Struct(uc); err != nil {
		return err
	}

	level, section := cls.Level, cls.Section
	if uc.Level != "" {
		level = uc.Level
	}
	if uc.Section != "" {
		section = uc.Section
	}
	if level != cls.Level || section != cls.Section {
		return svc.CheckClassUniqueness(cls.SchoolID, level, section, cls)
	}
	return nil
}

type NewSubject struct {
	ClassID     int    `json:"class_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (ns *NewSubject) Validate(svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckSubjectUniqueness(ns.ClassID, ns.Name)
}

type UpdateSubject struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (us *UpdateSubject) Validate(sub Subject, svc Service) error {
	us.Name = core.CleanString(us.Name)
	us.Description = core.CleanString(us.Description)
	if err := core.Validate.Struct(us); err != nil {
		return err
	}
	if us.Name != "" && us.Name != sub.Name {
		return svc.CheckSubjectUniqueness(sub.ClassID, us.Name, sub)
	}
	return nil
}

type NewScheduleSlot struct {
	ClassID int    `json:"class_id" validate:"required"`
	Weekday string `json:"weekday" validate:"required,oneof=monday tuesday wednesday thursday friday saturday"`
	Hour    string `json:"hour" validate:"required,datetime=15:04"`
	Room    string `json:"room" validate:"required"`
}

func (ns *NewScheduleSlot) Validate() error {
	ns.Weekday = core.CleanString(ns.Weekday, true /* lower */)
	ns.Room = core.CleanString(ns.Room)
	return core.Validate.Struct(ns)
}

func upperLevel(level string) string {
	for _, l := range Levels {
		if core.CleanString(level, true) == core.CleanString(l, true) {
			return l
		}
	}
	return level
}
