package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsNumeric(t *testing.T) {
	valid := []string{"123", "0", "9876543210"}
	invalid := []string{"abc", "123a", "", "-123"}
	for _, s := range valid {
		if !IsNumeric(s) {
			t.Errorf("IsNumeric(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsNumeric(s) {
			t.Errorf("IsNumeric(%q) = true, want false", s)
		}
	}
}

func TestIsValidStaffID(t *testing.T) {
	valid := []string{"EMP001", "staff_12", "A-7"}
	invalid := []string{"", "EMP 001", "emp/01", "x'; DROP TABLE staff;--"}
	for _, s := range valid {
		if !IsValidStaffID(s) {
			t.Errorf("IsValidStaffID(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidStaffID(s) {
			t.Errorf("IsValidStaffID(%q) = true, want false", s)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		_, ok := IsValidDate(s)
		if !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		_, ok := IsValidDate(s)
		if ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidClock(t *testing.T) {
	valid := []string{"17:45", "00:00", "09:00:30"}
	invalid := []string{"24:00", "9am", "17:60", ""}
	for _, s := range valid {
		if !IsValidClock(s) {
			t.Errorf("IsValidClock(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidClock(s) {
			t.Errorf("IsValidClock(%q) = true, want false", s)
		}
	}
}

func TestIsValidMonth(t *testing.T) {
	if !IsValidMonth(2024, 2) {
		t.Errorf("IsValidMonth(2024, 2) = false, want true")
	}
	if IsValidMonth(2024, 13) {
		t.Errorf("IsValidMonth(2024, 13) = true, want false")
	}
	if IsValidMonth(1900, 1) {
		t.Errorf("IsValidMonth(1900, 1) = true, want false")
	}
}

func TestIsValidDateTime(t *testing.T) {
	if _, ok := IsValidDateTime("2024-01-15T10:30:00+08:00"); !ok {
		t.Errorf("IsValidDateTime(offset) = false, want true")
	}
	if _, ok := IsValidDateTime("2024-01-15 10:30"); ok {
		t.Errorf("IsValidDateTime(space separated) = true, want false")
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"a", "b", "c"}
	if !IsInSlice("a", slice) {
		t.Errorf("IsInSlice('a') = false, want true")
	}
	if IsInSlice("d", slice) {
		t.Errorf("IsInSlice('d') = true, want false")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "staff_id", Message: "required"},
		{Field: "leave_end_date", Message: "invalid"},
	}
	got := errs.Error()
	want := "staff_id: required; leave_end_date: invalid"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := Single("check_out_time", "must be after check-in")
	got := errs.ToMap()
	if len(got) != 1 || got["check_out_time"] != "must be after check-in" {
		t.Errorf("ValidationErrors.ToMap() = %v", got)
	}
}
