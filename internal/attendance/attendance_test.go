package attendance_test

import (
	"testing"

	"github.com/christopherklint97/attendr/internal/attendance"
)

func TestCalculateMargin_SafeBoundary(t *testing.T) {
	m := attendance.CalculateMargin(40, 5, attendance.Threshold)
	if m.Kind != attendance.Safe || m.Hours != 6 {
		t.Fatalf("margin = %+v, want safe 6", m)
	}

	// Six more absences stay at or above threshold, seven do not.
	if pct := attendance.Percentage(46, 11); pct < 75 {
		t.Errorf("after 6 absences: %.2f%% < 75%%", pct)
	}
	if pct := attendance.Percentage(47, 12); pct >= 75 {
		t.Errorf("after 7 absences: %.2f%% >= 75%%", pct)
	}
}

func TestCalculateMargin_Deficit(t *testing.T) {
	m := attendance.CalculateMargin(20, 8, attendance.Threshold)
	if m.Kind != attendance.Required || m.Hours != 12 {
		t.Fatalf("margin = %+v, want required 12", m)
	}

	if pct := attendance.Percentage(32, 8); pct < 75 {
		t.Errorf("after 12 attended: %.2f%% < 75%%", pct)
	}
	if pct := attendance.Percentage(31, 8); pct >= 75 {
		t.Errorf("after 11 attended: %.2f%% already >= 75%%", pct)
	}
}

func TestCalculateMargin_ExactThresholdIsEdge(t *testing.T) {
	m := attendance.CalculateMargin(4, 1, attendance.Threshold)
	if m.Kind != attendance.Edge || m.Hours != 0 {
		t.Errorf("margin = %+v, want edge", m)
	}
}

func TestCalculateMargin_ZeroConducted(t *testing.T) {
	m := attendance.CalculateMargin(0, 0, attendance.Threshold)
	if m.Kind != attendance.Required || m.Hours != 0 {
		t.Errorf("margin = %+v, want required 0", m)
	}
}

func TestCalculateMargin_SafeInvariant(t *testing.T) {
	for conducted := 1; conducted <= 120; conducted++ {
		for absent := 0; absent <= conducted; absent++ {
			m := attendance.CalculateMargin(conducted, absent, attendance.Threshold)
			present := conducted - absent

			switch m.Kind {
			case attendance.Safe:
				total := conducted + m.Hours
				if float64(present)/float64(total) < attendance.Threshold {
					t.Fatalf("%d/%d: safe %d drops below threshold", present, conducted, m.Hours)
				}
				if float64(present)/float64(total+1) >= attendance.Threshold {
					t.Fatalf("%d/%d: safe %d is not the boundary", present, conducted, m.Hours)
				}
			case attendance.Required:
				total := conducted + m.Hours
				if float64(present+m.Hours)/float64(total) < attendance.Threshold {
					t.Fatalf("%d/%d: required %d does not reach threshold", present, conducted, m.Hours)
				}
			case attendance.Edge:
				if float64(present)/float64(conducted+1) >= attendance.Threshold {
					t.Fatalf("%d/%d: edge but one more absence is still safe", present, conducted)
				}
			}
		}
	}
}

func TestPercentage(t *testing.T) {
	if got := attendance.Percentage(0, 0); got != 0 {
		t.Errorf("Percentage(0,0) = %v, want 0", got)
	}
	if got := attendance.Percentage(40, 5); got != 87.5 {
		t.Errorf("Percentage(40,5) = %v, want 87.5", got)
	}
}

func TestMarginString(t *testing.T) {
	tests := map[attendance.Margin]string{
		{Kind: attendance.Safe, Hours: 3}:     "can skip 3",
		{Kind: attendance.Edge}:               "on the edge, no margin",
		{Kind: attendance.Required, Hours: 7}: "attend 7 more",
	}
	for m, want := range tests {
		if got := m.String(); got != want {
			t.Errorf("%+v.String() = %q, want %q", m, got, want)
		}
	}
}

func TestRecordPresent(t *testing.T) {
	r := attendance.Record{Conducted: 30, Absent: 4}
	if r.Present() != 26 {
		t.Errorf("Present = %d, want 26", r.Present())
	}
}
