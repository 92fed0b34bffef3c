package course

import (
	"errors"
	"testing"
	"time"
)

func TestStatus_ExitDateStrictlyAfterToday(t *testing.T) {
	today := NewDate(2026, time.October, 17)
	cases := []struct {
		exit Date
		want Status
	}{
		{today.AddDays(1), StatusActive},
		{today, StatusInactive},
		{today.AddDays(-1), StatusInactive},
	}
	for _, c := range cases {
		p := Participant{ExitDate: c.exit}
		if got := p.Status(today); got != c.want {
			t.Fatalf("exit %s: got %s, want %s", c.exit, got, c.want)
		}
	}
}

func TestBirthDateAndAge(t *testing.T) {
	today := NewDate(2026, time.October, 17)
	cases := []struct {
		id   string
		want Date
		age  int
	}{
		{"1234150385", NewDate(1985, time.March, 15), 41},
		{"1234171008", NewDate(2008, time.October, 17), 18},
		{"1234181008", NewDate(2008, time.October, 18), 17},
		{"1234010126", NewDate(2026, time.January, 1), 0},
		{"1234010127", NewDate(1927, time.January, 1), 99},
	}
	for _, c := range cases {
		p := Participant{NationalID: c.id}
		got, err := p.BirthDate(today)
		if err != nil {
			t.Fatalf("%s: %v", c.id, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("%s: birth %s, want %s", c.id, got, c.want)
		}
		if a := p.Age(today); a != c.age {
			t.Fatalf("%s: age %d, want %d", c.id, a, c.age)
		}
	}
}

func validParticipant() Participant {
	return Participant{
		Name:       "Anna Berger",
		NationalID: "1234150385",
		Occupation: "ELEKTRIKERIN",
		EntryDate:  NewDate(2026, time.September, 1),
		ExitDate:   NewDate(2026, time.December, 18),
	}
}

func TestParticipantValidate(t *testing.T) {
	today := NewDate(2026, time.October, 17)
	p := validParticipant()
	if err := p.Validate(today); err != nil {
		t.Fatalf("unexpected: %v", err)
	}

	cases := map[string]func(*Participant){
		"name":        func(p *Participant) { p.Name = "  " },
		"short id":    func(p *Participant) { p.NationalID = "123415038" },
		"letters":     func(p *Participant) { p.NationalID = "12341503AB" },
		"bad date":    func(p *Participant) { p.NationalID = "1234310285" },
		"bad month":   func(p *Participant) { p.NationalID = "1234151385" },
		"lower occ":   func(p *Participant) { p.Occupation = "Elektrikerin" },
		"digits only": func(p *Participant) { p.Occupation = "123" },
		"exit before": func(p *Participant) { p.ExitDate = p.EntryDate.AddDays(-1) },
		"no entry":    func(p *Participant) { p.EntryDate = Date{} },
	}
	for name, mutate := range cases {
		p := validParticipant()
		mutate(&p)
		var ve *ValidationError
		if err := p.Validate(today); !errors.As(err, &ve) {
			t.Fatalf("%s: want ValidationError, got %v", name, err)
		}
	}
}

func TestIsUpperLabel(t *testing.T) {
	for s, want := range map[string]bool{
		"KFZ-MECHATRONIKER": true,
		"BÄCKER":            true,
		"IT 2":              true,
		"Bäcker":            false,
		"":                  false,
		"42":                false,
	} {
		if got := IsUpperLabel(s); got != want {
			t.Fatalf("IsUpperLabel(%q)=%v, want %v", s, got, want)
		}
	}
}

func TestDate_DaysSinceAndJSON(t *testing.T) {
	today := NewDate(2026, time.October, 17)
	if d := today.AddDays(-30).DaysSince(today); d != -30 {
		t.Fatalf("DaysSince=%d, want -30", d)
	}
	b, err := today.MarshalJSON()
	if err != nil || string(b) != `"2026-10-17"` {
		t.Fatalf("marshal: %s %v", b, err)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil || !back.Equal(today) {
		t.Fatalf("unmarshal: %v %v", back, err)
	}
	if _, err := ParseDate("17.10.2026"); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}
